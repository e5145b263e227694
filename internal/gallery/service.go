package gallery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/storage"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/internal/validation"
	"github.com/2beens/realestate/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	msgItemNotFound = "Item not found"
	imagePrefix     = "gallery/items"
)

type Service struct {
	repo     galleryRepo
	uploader storage.ImageUploader
}

func NewService(repo galleryRepo, uploader storage.ImageUploader) *Service {
	return &Service{
		repo:     repo,
		uploader: uploader,
	}
}

// Create adds an item. Either an uploaded image or an image url is required.
func (s *Service) Create(ctx context.Context, actor *auth.Identity, in ItemInput, image *storage.Image) (_ *Item, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "galleryService.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	in = normalizeInput(in)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if image == nil && in.ImageURL == "" {
		return nil, apperr.Validation("image is required")
	}

	item := &Item{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		Published:   in.Published,
	}
	if image != nil {
		if item.ImageURL, err = s.upload(ctx, image); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Add(ctx, item); err != nil {
		return nil, apperr.Internal(err)
	}

	span.SetAttributes(attribute.Int("item.id", item.ID))
	log.Debugf("gallery item %d created by %d", item.ID, actor.ID)
	return item, nil
}

func (s *Service) Update(ctx context.Context, actor *auth.Identity, id int, in ItemInput, image *storage.Image) (_ *Item, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "galleryService.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("item.id", id))

	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	in = normalizeInput(in)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, apperr.NotFound(msgItemNotFound)
		}
		return nil, apperr.Internal(err)
	}

	item := &Item{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		ImageURL:    current.ImageURL,
		Published:   in.Published,
	}
	if in.ImageURL != "" {
		item.ImageURL = in.ImageURL
	}
	if image != nil {
		if item.ImageURL, err = s.upload(ctx, image); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, apperr.NotFound(msgItemNotFound)
		}
		return nil, apperr.Internal(err)
	}
	return item, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.Identity, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "galleryService.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return apperr.NotFound(msgItemNotFound)
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, params ListParams) (*ItemsPage, error) {
	params = params.normalized()
	params.Category = strings.TrimSpace(params.Category)

	items, err := s.repo.ListPublished(ctx, params.Category, params.Limit, (params.Page-1)*params.Limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	total, err := s.repo.CountPublished(ctx, params.Category)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &ItemsPage{
		Items:      items,
		Pagination: pkg.NewPagination(total, params.Page, params.Limit),
	}, nil
}

// Get returns a published item. Drafts are only visible to admins.
func (s *Service) Get(ctx context.Context, actor *auth.Identity, id int) (*Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, apperr.NotFound(msgItemNotFound)
		}
		return nil, apperr.Internal(err)
	}
	if !item.Published && !actor.IsAdmin() {
		return nil, apperr.NotFound(msgItemNotFound)
	}
	return item, nil
}

func (s *Service) All(ctx context.Context, actor *auth.Identity) ([]Item, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.repo.All(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) upload(ctx context.Context, image *storage.Image) (string, error) {
	if s.uploader == nil {
		return "", apperr.Validation("image uploads are not enabled")
	}
	url, err := s.uploader.Upload(ctx, imagePrefix, image.Filename, image.ContentType, image.Body)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("upload image: %w", err))
	}
	return url, nil
}

func normalizeInput(in ItemInput) ItemInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	return in
}
