package gallery

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/realestate/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrItemNotFound = errors.New("gallery item not found")

type galleryRepo interface {
	Add(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Item, error)
	// ListPublished returns published items newest first. An empty category
	// matches every item.
	ListPublished(ctx context.Context, category string, limit, offset int) ([]Item, error)
	CountPublished(ctx context.Context, category string) (int, error)
	All(ctx context.Context) ([]Item, error)
}

const selectItemColumns = `SELECT id, title, description, category, image_url, published, created_at FROM gallery_items`

var _ galleryRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, item *Item) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "galleryRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO gallery_items (title, description, category, image_url, published)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at;`,
		item.Title, item.Description, item.Category, item.ImageURL, item.Published,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert gallery item: %w", err)
	}

	span.SetAttributes(attribute.Int("item.id", item.ID))
	return nil
}

func (r *Repo) Update(ctx context.Context, item *Item) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "galleryRepo.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("item.id", item.ID))

	err = r.db.QueryRow(
		ctx,
		`UPDATE gallery_items SET
			title = $1,
			description = $2,
			category = $3,
			image_url = $4,
			published = $5
		WHERE id = $6
		RETURNING created_at;`,
		item.Title, item.Description, item.Category, item.ImageURL, item.Published, item.ID,
	).Scan(&item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("update gallery item: %w", err)
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "galleryRepo.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("item.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM gallery_items WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Item, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "galleryRepo.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, selectItemColumns+` WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}

	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Item])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *Repo) ListPublished(ctx context.Context, category string, limit, offset int) (_ []Item, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "galleryRepo.listPublished")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("category", category))

	rows, err := r.db.Query(
		ctx,
		selectItemColumns+` WHERE published AND ($1 = '' OR category = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3;`,
		category, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowToStructByPos[Item])
}

func (r *Repo) CountPublished(ctx context.Context, category string) (count int, err error) {
	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM gallery_items WHERE published AND ($1 = '' OR category = $1);`,
		category,
	).Scan(&count)
	return count, err
}

func (r *Repo) All(ctx context.Context) (_ []Item, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "galleryRepo.all")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, selectItemColumns+` ORDER BY created_at DESC, id DESC;`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowToStructByPos[Item])
}
