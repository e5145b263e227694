package testimonials

import (
	"context"
	"errors"
	"strings"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/internal/validation"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const msgTestimonialNotFound = "Testimonial not found"

type Service struct {
	repo testimonialsRepo
}

func NewService(repo testimonialsRepo) *Service {
	return &Service{
		repo: repo,
	}
}

// Submit stores a public submission. It stays hidden until an admin
// approves it.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (_ *Testimonial, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "testimonialsService.submit")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	in.Content = strings.TrimSpace(in.Content)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	t := &Testimonial{
		Name:     in.Name,
		Role:     in.Role,
		Content:  in.Content,
		Rating:   in.Rating,
		Approved: false,
	}
	if in.ImageURL != "" {
		t.ImageURL = &in.ImageURL
	}

	if err := s.repo.Add(ctx, t); err != nil {
		return nil, apperr.Internal(err)
	}

	span.SetAttributes(attribute.Int("testimonial.id", t.ID))
	log.Debugf("testimonial %d submitted, waiting for approval", t.ID)
	return t, nil
}

// Approved lists approved testimonials, newest first.
func (s *Service) Approved(ctx context.Context, limit int) ([]Testimonial, error) {
	return s.list(ctx, true, limit, defaultPublicLimit)
}

func (s *Service) Pending(ctx context.Context, actor *auth.Identity, limit int) ([]Testimonial, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.list(ctx, false, limit, defaultPendingLimit)
}

func (s *Service) All(ctx context.Context, actor *auth.Identity) ([]Testimonial, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	list, err := s.repo.List(ctx, Filter{})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

func (s *Service) Approve(ctx context.Context, actor *auth.Identity, id int) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Approve(ctx, id); err != nil {
		return notFoundOrInternal(err)
	}
	log.Debugf("testimonial %d approved by %d", id, actor.ID)
	return nil
}

// Reject removes a submission. Rejected testimonials are not kept.
func (s *Service) Reject(ctx context.Context, actor *auth.Identity, id int) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err)
	}
	log.Debugf("testimonial %d rejected by %d", id, actor.ID)
	return nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.Identity, id int) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err)
	}
	return nil
}

func (s *Service) list(ctx context.Context, approved bool, limit, defaultLimit int) ([]Testimonial, error) {
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}

	list, err := s.repo.List(ctx, Filter{Approved: &approved, Limit: limit})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

func notFoundOrInternal(err error) error {
	if errors.Is(err, ErrTestimonialNotFound) {
		return apperr.NotFound(msgTestimonialNotFound)
	}
	return apperr.Internal(err)
}
