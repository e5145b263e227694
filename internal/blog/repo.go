package blog

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/realestate/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrPostNotFound = errors.New("blog post not found")

type blogRepo interface {
	Add(ctx context.Context, post *Post) error
	// Update stores everything but the author and the creation time.
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Post, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*Post, error)
	// ListPublished returns published posts, newest first, whose title or
	// excerpt contain search (case insensitive). Empty search matches all.
	ListPublished(ctx context.Context, search string, limit, offset int) ([]Post, error)
	CountPublished(ctx context.Context, search string) (int, error)
	All(ctx context.Context) ([]Post, error)
	// CountMentions counts, per term and in the order given, the published
	// posts whose title, excerpt or content contain it.
	CountMentions(ctx context.Context, terms []string) ([]Category, error)
	SlugTaken(ctx context.Context, slug string, excludeID int) (bool, error)
}

const selectPostColumns = `SELECT p.id, p.title, p.slug, p.excerpt, p.content, p.image_url, p.author_id,
	COALESCE(u.name, ''), p.published, p.created_at, p.updated_at
	FROM blog_posts p LEFT JOIN users u ON u.id = p.author_id`

// shared by ListPublished and CountPublished, $1 is the search term
const publishedFilter = `WHERE p.published
	AND ($1 = '' OR p.title ILIKE '%' || $1 || '%' OR p.excerpt ILIKE '%' || $1 || '%')`

var _ blogRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, post *Post) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO blog_posts (title, slug, excerpt, content, image_url, author_id, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at;`,
		post.Title, post.Slug, post.Excerpt, post.Content, post.ImageURL, post.AuthorID, post.Published,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert blog post: %w", err)
	}

	span.SetAttributes(attribute.Int("post.id", post.ID))
	return nil
}

func (r *Repo) Update(ctx context.Context, post *Post) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("post.id", post.ID))

	err = r.db.QueryRow(
		ctx,
		`UPDATE blog_posts SET
			title = $1,
			slug = $2,
			excerpt = $3,
			content = $4,
			image_url = $5,
			published = $6,
			updated_at = NOW()
		WHERE id = $7
		RETURNING author_id, created_at, updated_at;`,
		post.Title, post.Slug, post.Excerpt, post.Content, post.ImageURL, post.Published, post.ID,
	).Scan(&post.AuthorID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPostNotFound
		}
		return fmt.Errorf("update blog post: %w", err)
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("post.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.getOne(ctx, selectPostColumns+` WHERE p.id = $1;`, id)
}

func (r *Repo) GetPublishedBySlug(ctx context.Context, slug string) (_ *Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.getPublishedBySlug")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("post.slug", slug))

	return r.getOne(ctx, selectPostColumns+` WHERE p.slug = $1 AND p.published;`, slug)
}

func (r *Repo) getOne(ctx context.Context, query string, arg any) (*Post, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}

	post, err := pgx.CollectExactlyOneRow(rows, scanPost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (r *Repo) ListPublished(ctx context.Context, search string, limit, offset int) (_ []Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.listPublished")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("limit", limit))
	span.SetAttributes(attribute.Int("offset", offset))

	rows, err := r.db.Query(
		ctx,
		selectPostColumns+` `+publishedFilter+`
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3;`,
		search, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanPost)
}

func (r *Repo) CountPublished(ctx context.Context, search string) (count int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.countPublished")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM blog_posts p `+publishedFilter+`;`,
		search,
	).Scan(&count)
	return count, err
}

func (r *Repo) CountMentions(ctx context.Context, terms []string) (_ []Category, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.countMentions")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT t.name, COUNT(p.id)
		FROM unnest($1::text[]) WITH ORDINALITY AS t(name, ord)
		LEFT JOIN blog_posts p ON p.published AND (
			p.title ILIKE '%' || t.name || '%'
			OR p.excerpt ILIKE '%' || t.name || '%'
			OR p.content ILIKE '%' || t.name || '%'
		)
		GROUP BY t.name, t.ord
		ORDER BY t.ord;`,
		terms,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Category])
}

func (r *Repo) All(ctx context.Context) (_ []Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.all")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, selectPostColumns+` ORDER BY p.created_at DESC, p.id DESC;`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanPost)
}

func (r *Repo) SlugTaken(ctx context.Context, slug string, excludeID int) (bool, error) {
	var taken bool
	err := r.db.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM blog_posts WHERE slug = $1 AND id <> $2);`,
		slug, excludeID,
	).Scan(&taken)
	return taken, err
}

func scanPost(row pgx.CollectableRow) (Post, error) {
	var p Post
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.ImageURL, &p.AuthorID,
		&p.AuthorName, &p.Published, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
