package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/internal/visitor"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

const windowFilter = `created_at >= $1 AND ($2::timestamptz IS NULL OR created_at < $2)`

type analyticsRepo interface {
	VisitorSeries(ctx context.Context, q Query) ([]TimeCount, error)
	PopularPages(ctx context.Context, q Query, limit int) ([]KeyCount, error)
	BrowserStats(ctx context.Context, q Query) ([]KeyCount, error)
	DeviceStats(ctx context.Context, q Query) ([]KeyCount, error)
	// Export calls fn for every page view of the window, newest first.
	Export(ctx context.Context, q Query, fn func(pv *visitor.PageView) error) error
	Recent(ctx context.Context, limit int) ([]visitor.PageView, error)
	CurrentVisitors(ctx context.Context, since time.Time) (int64, error)
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}

var _ analyticsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) VisitorSeries(ctx context.Context, q Query) (_ []TimeCount, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyticsRepo.visitorSeries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("analytics.period", string(q.Period)))

	// bucket unit is one of two constants, never user input
	rows, err := r.db.Query(
		ctx,
		fmt.Sprintf(`
			SELECT date_trunc('%s', created_at) AS time, COUNT(*) AS count
			FROM page_views
			WHERE %s
			GROUP BY time
			ORDER BY time ASC;`, q.Period.Bucket(), windowFilter),
		q.Start, q.end(),
	)
	if err != nil {
		return nil, fmt.Errorf("query visitor series: %w", err)
	}

	series, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimeCount, error) {
		var tc TimeCount
		err := row.Scan(&tc.Time, &tc.Count)
		tc.Time = tc.Time.UTC()
		return tc, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect visitor series: %w", err)
	}
	return series, nil
}

func (r *Repo) PopularPages(ctx context.Context, q Query, limit int) (_ []KeyCount, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyticsRepo.popularPages")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.keyCounts(ctx, fmt.Sprintf(`
		SELECT path, COUNT(*) AS count
		FROM page_views
		WHERE %s
		GROUP BY path
		ORDER BY count DESC, path ASC
		LIMIT $3;`, windowFilter),
		q.Start, q.end(), limit,
	)
}

func (r *Repo) BrowserStats(ctx context.Context, q Query) (_ []KeyCount, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyticsRepo.browserStats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.keyCounts(ctx, fmt.Sprintf(`
		SELECT browser, COUNT(*) AS count
		FROM page_views
		WHERE browser IS NOT NULL AND %s
		GROUP BY browser
		ORDER BY count DESC, browser ASC;`, windowFilter),
		q.Start, q.end(),
	)
}

func (r *Repo) DeviceStats(ctx context.Context, q Query) (_ []KeyCount, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyticsRepo.deviceStats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.keyCounts(ctx, fmt.Sprintf(`
		SELECT device_type, COUNT(*) AS count
		FROM page_views
		WHERE device_type IS NOT NULL AND %s
		GROUP BY device_type
		ORDER BY count DESC, device_type ASC;`, windowFilter),
		q.Start, q.end(),
	)
}

func (r *Repo) keyCounts(ctx context.Context, sql string, args ...any) ([]KeyCount, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (KeyCount, error) {
		var kc KeyCount
		err := row.Scan(&kc.Key, &kc.Count)
		return kc, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect counts: %w", err)
	}
	return counts, nil
}

const pageViewColumns = `id, path, COALESCE(user_agent, ''), COALESCE(ip_address, ''),
	COALESCE(browser, ''), COALESCE(browser_version, ''), COALESCE(operating_system, ''),
	COALESCE(device_type, ''), COALESCE(referer, ''), country, city,
	COALESCE(session_id, ''), created_at`

func scanPageView(row pgx.Row, pv *visitor.PageView) error {
	return row.Scan(
		&pv.ID, &pv.Path, &pv.UserAgent, &pv.IPAddress,
		&pv.Browser, &pv.BrowserVersion, &pv.OperatingSystem,
		&pv.DeviceType, &pv.Referer, &pv.Country, &pv.City,
		&pv.SessionID, &pv.CreatedAt,
	)
}

// Export streams rows, so large windows are never held in memory.
func (r *Repo) Export(ctx context.Context, q Query, fn func(pv *visitor.PageView) error) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyticsRepo.export")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		fmt.Sprintf(`SELECT %s FROM page_views WHERE %s ORDER BY created_at DESC, id DESC;`, pageViewColumns, windowFilter),
		q.Start, q.end(),
	)
	if err != nil {
		return fmt.Errorf("query export: %w", err)
	}
	defer rows.Close()

	exported := 0
	var pv visitor.PageView
	for rows.Next() {
		if err := scanPageView(rows, &pv); err != nil {
			return fmt.Errorf("rows scan: %w", err)
		}
		if err := fn(&pv); err != nil {
			return err
		}
		exported++
	}
	span.SetAttributes(attribute.Int("analytics.exported", exported))

	return rows.Err()
}

func (r *Repo) Recent(ctx context.Context, limit int) (_ []visitor.PageView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyticsRepo.recent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		fmt.Sprintf(`SELECT %s FROM page_views ORDER BY created_at DESC, id DESC LIMIT $1;`, pageViewColumns),
		limit,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (visitor.PageView, error) {
		var pv visitor.PageView
		err := scanPageView(row, &pv)
		return pv, err
	})
}

func (r *Repo) CurrentVisitors(ctx context.Context, since time.Time) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyticsRepo.currentVisitors")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int64
	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(DISTINCT session_id) FROM page_views
		WHERE created_at > $1 AND session_id IS NOT NULL AND session_id <> '';`,
		since,
	).Scan(&count)
	return count, err
}

func (r *Repo) DashboardStats(ctx context.Context) (_ *DashboardStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyticsRepo.dashboardStats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var stats DashboardStats
	err = r.db.QueryRow(
		ctx,
		`SELECT
			(SELECT COUNT(*) FROM blog_posts),
			(SELECT COUNT(*) FROM gallery_items),
			(SELECT COUNT(*) FROM testimonials),
			(SELECT COUNT(*) FROM page_views);`,
	).Scan(&stats.BlogCount, &stats.GalleryCount, &stats.TestimonialCount, &stats.ViewsCount)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}
	return &stats, nil
}
