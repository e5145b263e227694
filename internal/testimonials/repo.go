package testimonials

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/realestate/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrTestimonialNotFound = errors.New("testimonial not found")

type testimonialsRepo interface {
	Add(ctx context.Context, t *Testimonial) error
	// List returns testimonials newest first. A zero limit means no limit.
	List(ctx context.Context, filter Filter) ([]Testimonial, error)
	Approve(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
}

var _ testimonialsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, t *Testimonial) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "testimonialsRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO testimonials (name, role, content, rating, image_url, approved)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at;`,
		t.Name, t.Role, t.Content, t.Rating, t.ImageURL, t.Approved,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert testimonial: %w", err)
	}
	return nil
}

func (r *Repo) List(ctx context.Context, filter Filter) (_ []Testimonial, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "testimonialsRepo.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("limit", filter.Limit))

	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}

	// LIMIT NULL is no limit
	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, role, content, rating, image_url, approved, created_at
		FROM testimonials
		WHERE ($1::boolean IS NULL OR approved = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2;`,
		filter.Approved, limit,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowToStructByPos[Testimonial])
}

func (r *Repo) Approve(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "testimonialsRepo.approve")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("testimonial.id", id))

	tag, err := r.db.Exec(ctx, `UPDATE testimonials SET approved = TRUE WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTestimonialNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "testimonialsRepo.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("testimonial.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM testimonials WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTestimonialNotFound
	}
	return nil
}
