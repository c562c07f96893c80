package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

const userColumns = `
	id, name, email, password, image, email_verified, role,
	banned, ban_reason, ban_expires, github_id, created_at, updated_at`

type UserPostgres struct {
	db *pgxpool.Pool
}

func NewUserPostgres(db *pgxpool.Pool) *UserPostgres {
	return &UserPostgres{db: db}
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Password,
		&u.Image,
		&u.EmailVerified,
		&u.Role,
		&u.Banned,
		&u.BanReason,
		&u.BanExpires,
		&u.GitHubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserPostgres) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserPostgres) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserPostgres) UserByGitHubID(ctx context.Context, githubID int64) (*models.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE github_id = $1`, githubID))
}

func (r *UserPostgres) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.Password,
		u.Image,
		u.EmailVerified,
		u.Role,
		u.Banned,
		u.BanReason,
		u.BanExpires,
		u.GitHubID,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, userEmailKey) || isUniqueViolation(err, userGitHubKey) {
			return app_errors.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *UserPostgres) exec(ctx context.Context, query string, args ...any) error {
	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return app_errors.ErrUserNotFound
	}
	return nil
}

func (r *UserPostgres) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

func (r *UserPostgres) LinkGitHub(ctx context.Context, id uuid.UUID, githubID int64) error {
	err := r.exec(ctx, `UPDATE users SET github_id = $2, updated_at = NOW() WHERE id = $1`, id, githubID)
	if isUniqueViolation(err, userGitHubKey) {
		return app_errors.ErrEmailTaken
	}
	return err
}

// ClaimForGitHub links githubID to an account whose email was never verified. The
// password set by the unverified registrant is dropped.
func (r *UserPostgres) ClaimForGitHub(ctx context.Context, id uuid.UUID, githubID int64) error {
	query := `
		UPDATE users
		   SET github_id = $2, email_verified = TRUE, password = '', updated_at = NOW()
		 WHERE id = $1
	`
	err := r.exec(ctx, query, id, githubID)
	if isUniqueViolation(err, userGitHubKey) {
		return app_errors.ErrEmailTaken
	}
	return err
}

func (r *UserPostgres) SetRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	return r.exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
}

func (r *UserPostgres) SetBan(ctx context.Context, id uuid.UUID, ban models.Ban) error {
	query := `
		UPDATE users
		   SET banned = $2, ban_reason = $3, ban_expires = $4, updated_at = NOW()
		 WHERE id = $1
	`
	return r.exec(ctx, query, id, ban.Banned, ban.Reason, ban.Expires)
}
