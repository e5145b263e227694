package users

import (
	"context"
	"errors"
	"strings"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/internal/validation"
	"github.com/2beens/realestate/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	msgEmailExists  = "Email already exists"
	msgUserNotFound = "User not found"
)

// Service manages back office accounts. Every method takes the acting
// identity and refuses anyone but an admin.
type Service struct {
	repo usersRepo
}

func NewService(repo usersRepo) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) Create(ctx context.Context, actor *auth.Identity, in CreateUserInput) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersService.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	in.Email = NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := pkg.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &User{
		Email: in.Email,
		Name:  strings.TrimSpace(in.Name),
		Role:  auth.Role(in.Role),
	}
	if err := s.repo.Add(ctx, user, hash); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, apperr.Conflict(msgEmailExists)
		}
		return nil, apperr.Internal(err)
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	log.Debugf("user %d created by %d", user.ID, actor.ID)
	return user, nil
}

func (s *Service) Update(ctx context.Context, actor *auth.Identity, id int, in UpdateUserInput) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersService.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", id))

	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, apperr.Validation("id is required")
	}
	in.Email = NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, in.Email, id); err != nil {
		return nil, err
	}

	var hash string
	if in.Password != "" {
		if hash, err = pkg.HashPassword(in.Password); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	user := &User{
		ID:    id,
		Email: in.Email,
		Name:  strings.TrimSpace(in.Name),
		Role:  auth.Role(in.Role),
	}
	if err := s.repo.Update(ctx, user, hash); err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return nil, apperr.NotFound(msgUserNotFound)
		case pkg.IsUniqueViolationError(err):
			return nil, apperr.Conflict(msgEmailExists)
		}
		return nil, apperr.Internal(err)
	}

	return user, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.Identity, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersService.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", id))

	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return apperr.NotFound(msgUserNotFound)
		}
		return apperr.Internal(err)
	}

	log.Debugf("user %d deleted by %d", id, actor.ID)
	return nil
}

func (s *Service) Get(ctx context.Context, actor *auth.Identity, id int) (*User, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound(msgUserNotFound)
		}
		return nil, apperr.Internal(err)
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, actor *auth.Identity) ([]User, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, excludeID int) error {
	taken, err := s.repo.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return apperr.Internal(err)
	}
	if taken {
		return apperr.Conflict(msgEmailExists)
	}
	return nil
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
