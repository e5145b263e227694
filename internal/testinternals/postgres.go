// Package testinternals starts throwaway dependencies for integration tests.
package testinternals

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/realestate/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	log "github.com/sirupsen/logrus"
)

const (
	postgresImageTag = "16"
	testDBName       = "realestate"
)

type Postgres struct {
	Pool     *pgxpool.Pool
	Port     string
	pool     *dockertest.Pool
	resource *dockertest.Resource
}

// StartPostgres runs a postgres container, waits for it to accept
// connections and applies the schema migrations.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("create dockertest pool: %w", err)
	}
	if err := dockerPool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("ping docker: %w", err)
	}
	dockerPool.MaxWait = time.Minute

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        postgresImageTag,
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=" + testDBName,
			"POSTGRES_HOST_AUTH_METHOD=trust",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, fmt.Errorf("run postgres: %w", err)
	}
	// never outlive a crashed test run
	_ = resource.Expire(300)

	pg := &Postgres{
		Port:     resource.GetPort("5432/tcp"),
		pool:     dockerPool,
		resource: resource,
	}

	if err := dockerPool.Retry(func() error {
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost: "localhost",
			DBPort: pg.Port,
			DBName: testDBName,
		})
		if err != nil {
			return err
		}
		if err := dbPool.Ping(ctx); err != nil {
			dbPool.Close()
			return err
		}
		pg.Pool = dbPool
		return nil
	}); err != nil {
		pg.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.RunMigrations(ctx, pg.Pool); err != nil {
		pg.Close()
		return nil, err
	}

	return pg, nil
}

// Truncate empties tables and resets their id sequences.
func (p *Postgres) Truncate(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s RESTART IDENTITY CASCADE;", table)); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
	if p.resource != nil {
		if err := p.pool.Purge(p.resource); err != nil {
			log.Errorf("purge postgres container: %s", err)
		}
	}
}
