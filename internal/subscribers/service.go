package subscribers

import (
	"context"
	"strings"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/validation"
	"github.com/2beens/realestate/pkg"

	log "github.com/sirupsen/logrus"
)

const msgAlreadySubscribed = "Email already subscribed"

type SubscribeInput struct {
	Email string `json:"email" validate:"required,email"`
}

type Service struct {
	repo subscribersRepo
}

func NewService(repo subscribersRepo) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) (*Subscriber, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" {
		return nil, apperr.Validation("Email is required")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	exists, err := s.repo.Exists(ctx, in.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.Conflict(msgAlreadySubscribed)
	}

	sub := &Subscriber{Email: in.Email}
	if err := s.repo.Add(ctx, sub); err != nil {
		// lost a race with a parallel subscribe
		if pkg.IsUniqueViolationError(err) {
			return nil, apperr.Conflict(msgAlreadySubscribed)
		}
		return nil, apperr.Internal(err)
	}

	log.Debugf("new subscriber %d", sub.ID)
	return sub, nil
}

func (s *Service) List(ctx context.Context, actor *auth.Identity) ([]Subscriber, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}
