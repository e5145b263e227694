package subscribers

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/realestate/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Subscriber struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type subscribersRepo interface {
	Add(ctx context.Context, s *Subscriber) error
	Exists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]Subscriber, error)
}

var _ subscribersRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, s *Subscriber) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "subscribersRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO subscribers (email) VALUES ($1) RETURNING id, created_at;`,
		s.Email,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func (r *Repo) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM subscribers WHERE email = $1);`,
		email,
	).Scan(&exists)
	return exists, err
}

func (r *Repo) List(ctx context.Context) (_ []Subscriber, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "subscribersRepo.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT id, email, created_at FROM subscribers ORDER BY created_at DESC, id DESC;`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Subscriber])
}
