package settings

import (
	"context"
	"strings"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/internal/validation"
	"github.com/2beens/realestate/pkg"

	log "github.com/sirupsen/logrus"
)

const (
	apiKeyPrefix     = "sk_live_"
	apiKeyRandomSize = 32
)

type Service struct {
	repo settingsRepo
	// replaced in tests
	randomHex func(n int) (string, error)
}

func NewService(repo settingsRepo) *Service {
	return &Service{
		repo:      repo,
		randomHex: pkg.GenerateRandomHex,
	}
}

func (s *Service) Site(ctx context.Context) (*SiteSettings, error) {
	site, err := s.repo.GetSite(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return site, nil
}

// UpdateSite writes the present fields of update. Concurrent updates are
// not detected, the last write wins.
func (s *Service) UpdateSite(ctx context.Context, actor *auth.Identity, update SiteSettingsUpdate) (_ *SiteSettings, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "settingsService.updateSite")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	trimAll(&update)
	if err := validation.Struct(update); err != nil {
		return nil, err
	}

	current, err := s.repo.GetSite(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if update.Empty() {
		return current, nil
	}

	site, err := s.repo.UpdateSite(ctx, &update)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	log.Debugf("site settings updated by %d", actor.ID)
	return site, nil
}

// RegenerateAPIKey returns a fresh sk_live_ key. The key is not stored.
func (s *Service) RegenerateAPIKey(ctx context.Context, actor *auth.Identity) (string, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return "", err
	}

	random, err := s.randomHex(apiKeyRandomSize)
	if err != nil {
		return "", apperr.Internal(err)
	}
	log.Debugf("api key regenerated by %d", actor.ID)
	return apiKeyPrefix + random, nil
}

func trimAll(u *SiteSettingsUpdate) {
	for _, c := range columns {
		if v := c.value(u); v != nil {
			*v = strings.TrimSpace(*v)
		}
	}
}
