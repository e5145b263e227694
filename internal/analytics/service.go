package analytics

import (
	"context"
	"time"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/visitor"
)

const (
	popularPagesLimit   = 10
	recentActivityLimit = 5
	currentVisitorsSpan = 5 * time.Minute
)

// Service answers the back office analytics queries. All of them are
// admin only.
type Service struct {
	repo analyticsRepo
	now  func() time.Time
}

func NewService(repo analyticsRepo) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Query resolves request parameters against the current time.
func (s *Service) Query(period, startDate, endDate string) (Query, error) {
	return NewQuery(period, startDate, endDate, s.now())
}

func (s *Service) VisitorSeries(ctx context.Context, actor *auth.Identity, q Query) ([]TimeCount, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	series, err := s.repo.VisitorSeries(ctx, q)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return orEmpty(series), nil
}

func (s *Service) PopularPages(ctx context.Context, actor *auth.Identity, q Query) ([]KeyCount, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	pages, err := s.repo.PopularPages(ctx, q, popularPagesLimit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return orEmpty(pages), nil
}

func (s *Service) BrowserStats(ctx context.Context, actor *auth.Identity, q Query) ([]KeyCount, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	browsers, err := s.repo.BrowserStats(ctx, q)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return orEmpty(browsers), nil
}

func (s *Service) DeviceStats(ctx context.Context, actor *auth.Identity, q Query) ([]KeyCount, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	devices, err := s.repo.DeviceStats(ctx, q)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return orEmpty(devices), nil
}

// Export hands the raw page views of q to fn, newest first. An error
// returned by fn stops the export and is returned as is.
func (s *Service) Export(ctx context.Context, actor *auth.Identity, q Query, fn func(pv *visitor.PageView) error) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	return s.repo.Export(ctx, q, fn)
}

func (s *Service) RecentActivity(ctx context.Context, actor *auth.Identity) ([]visitor.PageView, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	views, err := s.repo.Recent(ctx, recentActivityLimit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return orEmpty(views), nil
}

// CurrentVisitors counts distinct visitor sessions seen in the last minutes.
func (s *Service) CurrentVisitors(ctx context.Context, actor *auth.Identity) (int64, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return 0, err
	}
	count, err := s.repo.CurrentVisitors(ctx, s.now().Add(-currentVisitorsSpan))
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}

func (s *Service) DashboardStats(ctx context.Context, actor *auth.Identity) (*DashboardStats, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	stats, err := s.repo.DashboardStats(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return stats, nil
}

// orEmpty makes empty results encode as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
