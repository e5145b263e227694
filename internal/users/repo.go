package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrUserNotFound = errors.New("user not found")

type usersRepo interface {
	auth.CredentialStore
	Add(ctx context.Context, user *User, passwordHash string) error
	// Update stores name, email and role, and the hash only when not empty.
	Update(ctx context.Context, user *User, passwordHash string) error
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*User, error)
	List(ctx context.Context) ([]User, error)
	// EmailTaken reports whether a user other than excludeID has email.
	EmailTaken(ctx context.Context, email string, excludeID int) (bool, error)
}

var _ usersRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) GetCredentialByEmail(ctx context.Context, email string) (_ *auth.Credential, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.getCredentialByEmail")
	defer func() {
		if errors.Is(err, auth.ErrCredentialNotFound) {
			// a normal outcome of a failed login
			tracing.EndSpanWithErrCheck(span, nil)
			return
		}
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var cred auth.Credential
	err = r.db.QueryRow(
		ctx,
		`SELECT id, email, name, role, password FROM users WHERE email = $1 LIMIT 1;`,
		email,
	).Scan(&cred.ID, &cred.Email, &cred.Name, &cred.Role, &cred.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("select credential: %w", err)
	}

	return &cred, nil
}

func (r *Repo) Add(ctx context.Context, user *User, passwordHash string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO users (email, password, name, role) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at;`,
		user.Email, passwordHash, user.Name, user.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	return nil
}

func (r *Repo) Update(ctx context.Context, user *User, passwordHash string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", user.ID))

	err = r.db.QueryRow(
		ctx,
		`UPDATE users SET
			name = $1,
			email = $2,
			role = $3,
			password = COALESCE(NULLIF($4, ''), password)
		WHERE id = $5
		RETURNING created_at;`,
		user.Name, user.Email, user.Role, passwordHash, user.ID,
	).Scan(&user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var u User
	err = r.db.QueryRow(
		ctx,
		`SELECT id, email, name, role, created_at FROM users WHERE id = $1;`,
		id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) List(ctx context.Context) (_ []User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, name, role, created_at FROM users ORDER BY created_at DESC, id DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (r *Repo) EmailTaken(ctx context.Context, email string, excludeID int) (bool, error) {
	var taken bool
	err := r.db.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2);`,
		email, excludeID,
	).Scan(&taken)
	return taken, err
}
