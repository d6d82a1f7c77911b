// Package storylinedb provides the Postgres drivers for publishers, feeds
// and articles.
package storylinedb

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// DB is the subset of pgxpool.Pool used by the drivers. pgxmock satisfies
// it in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the persistence layer over publishers, feeds and articles.
type Repository struct {
	db     DB
	logger *slog.Logger
}

func NewRepository(db DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}

	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Connect opens a pgx pool for the given connection string.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
