package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/realestate/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const siteSettingsColumns = `site_name, site_description, contact_email, contact_phone, address,
	meta_title, meta_description, meta_keywords, updated_at`

type settingsRepo interface {
	// GetSite returns the single site settings row, creating it with
	// defaults when missing.
	GetSite(ctx context.Context) (*SiteSettings, error)
	UpdateSite(ctx context.Context, update *SiteSettingsUpdate) (*SiteSettings, error)
}

var _ settingsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) GetSite(ctx context.Context) (_ *SiteSettings, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "settingsRepo.getSite")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s, err := r.selectSite(ctx)
	if !errors.Is(err, pgx.ErrNoRows) {
		return s, err
	}

	if _, err := r.db.Exec(ctx, `INSERT INTO site_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING;`); err != nil {
		return nil, fmt.Errorf("insert default site settings: %w", err)
	}
	return r.selectSite(ctx)
}

func (r *Repo) selectSite(ctx context.Context) (*SiteSettings, error) {
	rows, err := r.db.Query(ctx, `SELECT `+siteSettingsColumns+` FROM site_settings WHERE id = 1;`)
	if err != nil {
		return nil, err
	}
	s, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[SiteSettings])
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) UpdateSite(ctx context.Context, update *SiteSettingsUpdate) (_ *SiteSettings, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "settingsRepo.updateSite")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	setClause, args := buildSetClause(update)
	rows, err := r.db.Query(
		ctx,
		`UPDATE site_settings SET `+setClause+` WHERE id = 1 RETURNING `+siteSettingsColumns+`;`,
		args...,
	)
	if err != nil {
		return nil, err
	}

	s, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[SiteSettings])
	if err != nil {
		return nil, fmt.Errorf("update site settings: %w", err)
	}
	return &s, nil
}
