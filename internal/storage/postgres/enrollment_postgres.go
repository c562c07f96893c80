package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

const enrollmentColumns = `
	id, user_id, course_id, enrolled_at, completed_at, progress,
	test_results, final_project_submission, is_active, created_at, updated_at`

type EnrollmentPostgres struct {
	db *pgxpool.Pool
}

func NewEnrollmentPostgres(db *pgxpool.Pool) *EnrollmentPostgres {
	return &EnrollmentPostgres{db: db}
}

func scanEnrollment(row scanner) (*models.Enrollment, error) {
	var (
		e          models.Enrollment
		results    []byte
		submission []byte
	)
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.CourseID,
		&e.EnrolledAt,
		&e.CompletedAt,
		&e.Progress,
		&results,
		&submission,
		&e.IsActive,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(results, &e.TestResults); err != nil {
		return nil, fmt.Errorf("decode test results of enrollment %s: %w", e.ID, err)
	}
	if len(submission) > 0 && string(submission) != "null" {
		e.FinalProjectSubmission = &models.FinalProjectSubmission{}
		if err := json.Unmarshal(submission, e.FinalProjectSubmission); err != nil {
			return nil, fmt.Errorf("decode submission of enrollment %s: %w", e.ID, err)
		}
	}
	return &e, nil
}

func encodeEnrollmentDocs(e *models.Enrollment) (results, submission []byte, err error) {
	if e.TestResults == nil {
		results = []byte("[]")
	} else if results, err = json.Marshal(e.TestResults); err != nil {
		return nil, nil, fmt.Errorf("encode test results: %w", err)
	}
	if e.FinalProjectSubmission != nil {
		if submission, err = json.Marshal(e.FinalProjectSubmission); err != nil {
			return nil, nil, fmt.Errorf("encode submission: %w", err)
		}
	}
	return results, submission, nil
}

func (r *EnrollmentPostgres) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	results, submission, err := encodeEnrollmentDocs(e)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.Exec(ctx, query,
		e.ID,
		e.UserID,
		e.CourseID,
		e.EnrolledAt,
		e.CompletedAt,
		e.Progress,
		results,
		submission,
		e.IsActive,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, enrollmentUniqueKey) {
			return app_errors.ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to enroll: %w", err)
	}
	return nil
}

func (r *EnrollmentPostgres) EnrollmentByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	e, err := scanEnrollment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *EnrollmentPostgres) EnrollmentByUserAndCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 AND course_id = $2`
	e, err := scanEnrollment(r.db.QueryRow(ctx, query, userID, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *EnrollmentPostgres) ListEnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 ORDER BY enrolled_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	enrollments := []models.Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, *e)
	}
	return enrollments, rows.Err()
}

// UpdateEnrollment locks the enrollment row, lets apply mutate it and writes the mutable fields back.
func (r *EnrollmentPostgres) UpdateEnrollment(ctx context.Context, id uuid.UUID, apply func(*models.Enrollment) error) (*models.Enrollment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	e, err := scanEnrollment(tx.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrEnrollmentNotFound
		}
		return nil, err
	}
	if err := apply(e); err != nil {
		return nil, err
	}

	results, submission, err := encodeEnrollmentDocs(e)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE enrollments
		   SET completed_at = $2, progress = $3, test_results = $4,
		       final_project_submission = $5, is_active = $6, updated_at = $7
		 WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query, e.ID, e.CompletedAt, e.Progress, results, submission, e.IsActive, e.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to update enrollment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return e, nil
}
