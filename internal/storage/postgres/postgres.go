package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Unique index names referenced when mapping constraint violations.
const (
	courseSlugKey       = "courses_slug_key"
	enrollmentUniqueKey = "enrollments_user_course_key"
	userEmailKey        = "users_email_key"
	userGitHubKey       = "users_github_id_key"
)

//go:embed schema.sql
var schema string

type Storage struct {
	Pool *pgxpool.Pool
}

func NewPostgresPool(ctx context.Context, username, password, host, port, dbName string) (*Storage, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s", username, password, host, port, dbName)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Storage{Pool: pool}, nil
}

// EnsureSchema creates missing tables and indexes. Every statement is idempotent.
func (p *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := p.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (p *Storage) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

func UnwrapPgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// isUniqueViolation reports whether err is a unique violation of the named index.
func isUniqueViolation(err error, constraint string) bool {
	pgErr := UnwrapPgError(err)
	return pgErr != nil && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
