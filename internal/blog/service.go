package blog

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
	msgSlugExists   = "Slug already exists"
	msgPostNotFound = "Post not found"

	imagePrefix = "blog/posts"
)

type Service struct {
	repo     blogRepo
	uploader storage.ImageUploader
}

// NewService creates the blog service. A nil uploader rejects image uploads.
func NewService(repo blogRepo, uploader storage.ImageUploader) *Service {
	return &Service{
		repo:     repo,
		uploader: uploader,
	}
}

func (s *Service) Create(ctx context.Context, actor *auth.Identity, in PostInput, image *storage.Image) (_ *Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogService.create")
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
	if err := s.ensureSlugFree(ctx, in.Slug, 0); err != nil {
		return nil, err
	}

	post := &Post{
		Title:     in.Title,
		Slug:      in.Slug,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		ImageURL:  optionalString(in.ImageURL),
		Published: in.Published,
	}
	authorID := in.AuthorID
	if authorID <= 0 {
		authorID = actor.ID
	}
	post.AuthorID = &authorID

	if image != nil {
		url, err := s.upload(ctx, image)
		if err != nil {
			return nil, err
		}
		post.ImageURL = &url
	}

	if err := s.repo.Add(ctx, post); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, apperr.Conflict(msgSlugExists)
		}
		return nil, apperr.Internal(err)
	}

	span.SetAttributes(attribute.Int("post.id", post.ID))
	log.Debugf("blog post %d [%s] created by %d", post.ID, post.Slug, actor.ID)
	return post, nil
}

// Update replaces the post fields. The current image is kept unless a new
// file or url is given.
func (s *Service) Update(ctx context.Context, actor *auth.Identity, id int, in PostInput, image *storage.Image) (_ *Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogService.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("post.id", id))

	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, apperr.Validation("id is required")
	}
	in = normalizeInput(in)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, in.Slug, id); err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, apperr.NotFound(msgPostNotFound)
		}
		return nil, apperr.Internal(err)
	}

	post := &Post{
		ID:        id,
		Title:     in.Title,
		Slug:      in.Slug,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		ImageURL:  current.ImageURL,
		Published: in.Published,
	}
	if in.ImageURL != "" {
		post.ImageURL = &in.ImageURL
	}
	if image != nil {
		url, err := s.upload(ctx, image)
		if err != nil {
			return nil, err
		}
		post.ImageURL = &url
	}

	if err := s.repo.Update(ctx, post); err != nil {
		switch {
		case errors.Is(err, ErrPostNotFound):
			return nil, apperr.NotFound(msgPostNotFound)
		case pkg.IsUniqueViolationError(err):
			return nil, apperr.Conflict(msgSlugExists)
		}
		return nil, apperr.Internal(err)
	}

	post.AuthorName = current.AuthorName
	return post, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.Identity, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogService.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("post.id", id))

	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return apperr.NotFound(msgPostNotFound)
		}
		return apperr.Internal(err)
	}

	log.Debugf("blog post %d deleted by %d", id, actor.ID)
	return nil
}

// List returns a page of published posts.
func (s *Service) List(ctx context.Context, params ListParams) (_ *PostsPage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogService.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	params = params.normalized()
	params.Search = strings.TrimSpace(params.Search)

	posts, err := s.repo.ListPublished(ctx, params.Search, params.Limit, params.offset())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	total, err := s.repo.CountPublished(ctx, params.Search)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &PostsPage{
		Posts:      withoutContent(posts),
		Pagination: pkg.NewPagination(total, params.Page, params.Limit),
	}, nil
}

func (s *Service) Recent(ctx context.Context, limit int) ([]Post, error) {
	if limit < 1 || limit > maxPageLimit {
		limit = defaultRecentLimit
	}

	posts, err := s.repo.ListPublished(ctx, "", limit, 0)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return withoutContent(posts), nil
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.CountMentions(ctx, categoryNames)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return categories, nil
}

func (s *Service) BySlug(ctx context.Context, slug string) (*Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, apperr.Validation("slug is required")
	}

	post, err := s.repo.GetPublishedBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, apperr.NotFound(msgPostNotFound)
		}
		return nil, apperr.Internal(err)
	}
	return post, nil
}

// All returns every post, drafts included.
func (s *Service) All(ctx context.Context, actor *auth.Identity) ([]Post, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	posts, err := s.repo.All(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return posts, nil
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

func (s *Service) ensureSlugFree(ctx context.Context, slug string, excludeID int) error {
	taken, err := s.repo.SlugTaken(ctx, slug, excludeID)
	if err != nil {
		return apperr.Internal(err)
	}
	if taken {
		return apperr.Conflict(msgSlugExists)
	}
	return nil
}

func normalizeInput(in PostInput) PostInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if strings.TrimSpace(in.Slug) == "" {
		in.Slug = in.Title
	}
	in.Slug = pkg.Slugify(in.Slug)
	return in
}

func withoutContent(posts []Post) []Post {
	for i := range posts {
		posts[i].Content = ""
	}
	return posts
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
