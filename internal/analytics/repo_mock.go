package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/2beens/realestate/internal/visitor"
)

var _ analyticsRepo = (*repoMock)(nil)

// repoMock aggregates in memory with the same grouping and ordering rules
// as the SQL queries.
type repoMock struct {
	mutex     sync.Mutex
	pageViews []visitor.PageView
	// content counts reported by DashboardStats, page views are counted
	Content DashboardStats
	Err     error
}

func NewRepoMock(pageViews ...visitor.PageView) *repoMock {
	return &repoMock{
		pageViews: pageViews,
	}
}

func (r *repoMock) Add(pv visitor.PageView) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	pv.ID = int64(len(r.pageViews) + 1)
	r.pageViews = append(r.pageViews, pv)
}

func (r *repoMock) inWindow(q Query) []visitor.PageView {
	var views []visitor.PageView
	for _, pv := range r.pageViews {
		if q.contains(pv.CreatedAt) {
			views = append(views, pv)
		}
	}
	return views
}

func (r *repoMock) VisitorSeries(_ context.Context, q Query) ([]TimeCount, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	var times []time.Time
	for _, pv := range r.inWindow(q) {
		times = append(times, pv.CreatedAt)
	}
	return bucket(times, q.Period), nil
}

func (r *repoMock) PopularPages(_ context.Context, q Query, limit int) ([]KeyCount, error) {
	counts, err := r.countBy(q, func(pv visitor.PageView) string { return pv.Path })
	if err != nil {
		return nil, err
	}
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

func (r *repoMock) BrowserStats(_ context.Context, q Query) ([]KeyCount, error) {
	return r.countBy(q, func(pv visitor.PageView) string { return pv.Browser })
}

func (r *repoMock) DeviceStats(_ context.Context, q Query) ([]KeyCount, error) {
	return r.countBy(q, func(pv visitor.PageView) string { return pv.DeviceType })
}

// countBy skips empty keys, the in-memory stand-in for NULL.
func (r *repoMock) countBy(q Query, key func(pv visitor.PageView) string) ([]KeyCount, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	byKey := make(map[string]int64)
	for _, pv := range r.inWindow(q) {
		if k := key(pv); k != "" {
			byKey[k]++
		}
	}

	counts := make([]KeyCount, 0, len(byKey))
	for k, c := range byKey {
		counts = append(counts, KeyCount{Key: k, Count: c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Key < counts[j].Key
	})
	return counts, nil
}

func (r *repoMock) newestFirst(views []visitor.PageView) []visitor.PageView {
	sorted := append([]visitor.PageView(nil), views...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted
}

func (r *repoMock) Export(_ context.Context, q Query, fn func(pv *visitor.PageView) error) error {
	r.mutex.Lock()
	if r.Err != nil {
		r.mutex.Unlock()
		return r.Err
	}
	views := r.newestFirst(r.inWindow(q))
	r.mutex.Unlock()

	for i := range views {
		if err := fn(&views[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoMock) Recent(_ context.Context, limit int) ([]visitor.PageView, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	views := r.newestFirst(r.pageViews)
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

func (r *repoMock) CurrentVisitors(_ context.Context, since time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}

	sessions := make(map[string]struct{})
	for _, pv := range r.pageViews {
		if pv.CreatedAt.After(since) && pv.SessionID != "" {
			sessions[pv.SessionID] = struct{}{}
		}
	}
	return int64(len(sessions)), nil
}

func (r *repoMock) DashboardStats(context.Context) (*DashboardStats, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	stats := r.Content
	stats.ViewsCount = int64(len(r.pageViews))
	return &stats, nil
}
