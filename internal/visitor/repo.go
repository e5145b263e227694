package visitor

import (
	"context"
	"fmt"

	"github.com/2beens/realestate/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type pageViewsRepo interface {
	Add(ctx context.Context, pageView *PageView) error
}

var _ pageViewsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add appends one page view and sets its id and creation time.
func (r *Repo) Add(ctx context.Context, pv *PageView) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "pageViewsRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	span.SetAttributes(attribute.String("page_view.path", pv.Path))
	span.SetAttributes(attribute.String("page_view.device", pv.DeviceType))

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO page_views (
			path, user_agent, ip_address, browser, browser_version,
			operating_system, device_type, referer, country, city, session_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at;`,
		pv.Path, pv.UserAgent, pv.IPAddress, pv.Browser, pv.BrowserVersion,
		pv.OperatingSystem, pv.DeviceType, pv.Referer, pv.Country, pv.City, pv.SessionID,
	).Scan(&pv.ID, &pv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert page view: %w", err)
	}

	return nil
}
