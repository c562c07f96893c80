package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

const courseColumns = `
	id, slug, title, description, small_description, category, level,
	duration, price, status, file_key, tests, final_project, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

type CoursePostgres struct {
	db *pgxpool.Pool
}

func NewCoursePostgres(db *pgxpool.Pool) *CoursePostgres {
	return &CoursePostgres{db: db}
}

func scanCourse(row scanner) (*models.Course, error) {
	var (
		c            models.Course
		tests        []byte
		finalProject []byte
	)
	err := row.Scan(
		&c.ID,
		&c.Slug,
		&c.Title,
		&c.Description,
		&c.SmallDescription,
		&c.Category,
		&c.Level,
		&c.Duration,
		&c.Price,
		&c.Status,
		&c.FileKey,
		&tests,
		&finalProject,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tests, &c.Tests); err != nil {
		return nil, fmt.Errorf("decode tests of course %s: %w", c.ID, err)
	}
	if len(finalProject) > 0 && string(finalProject) != "null" {
		c.FinalProject = &models.FinalProject{}
		if err := json.Unmarshal(finalProject, c.FinalProject); err != nil {
			return nil, fmt.Errorf("decode final project of course %s: %w", c.ID, err)
		}
	}
	return &c, nil
}

func encodeCourseDocs(c *models.Course) (tests, finalProject []byte, err error) {
	if c.Tests == nil {
		tests = []byte("[]")
	} else if tests, err = json.Marshal(c.Tests); err != nil {
		return nil, nil, fmt.Errorf("encode tests: %w", err)
	}
	if c.FinalProject != nil {
		if finalProject, err = json.Marshal(c.FinalProject); err != nil {
			return nil, nil, fmt.Errorf("encode final project: %w", err)
		}
	}
	return tests, finalProject, nil
}

func (r *CoursePostgres) CreateCourse(ctx context.Context, c *models.Course) error {
	tests, finalProject, err := encodeCourseDocs(c)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO courses (` + courseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.db.Exec(ctx, query,
		c.ID,
		c.Slug,
		c.Title,
		c.Description,
		c.SmallDescription,
		c.Category,
		c.Level,
		c.Duration,
		c.Price,
		c.Status,
		c.FileKey,
		tests,
		finalProject,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, courseSlugKey) {
			return app_errors.ErrSlugTaken
		}
		return fmt.Errorf("failed to insert course: %w", err)
	}
	return nil
}

func (r *CoursePostgres) CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	course, err := scanCourse(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

// CoursesByIDs returns the existing courses among ids, in no particular order.
func (r *CoursePostgres) CoursesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses by ids: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

func courseFilterClause(f models.CourseFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if f.Category != "" {
		add("category", f.Category)
	}
	if f.Level != "" {
		add("level", f.Level)
	}
	if f.Status != "" {
		add("status", f.Status)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListCourses returns one page of courses newest first and the number of courses matching f.
func (r *CoursePostgres) ListCourses(ctx context.Context, f models.CourseFilter, limit, offset int) ([]models.Course, int, error) {
	where, args := courseFilterClause(f)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM courses%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		courseColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	courses := make([]models.Course, 0, limit)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		courses = append(courses, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// UpdateCourse locks the course row, lets apply mutate the stored document and writes it back.
// An error from apply aborts the transaction and is returned as is.
func (r *CoursePostgres) UpdateCourse(ctx context.Context, id uuid.UUID, apply func(*models.Course) error) (*models.Course, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	course, err := scanCourse(tx.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrCourseNotFound
		}
		return nil, err
	}
	if err := apply(course); err != nil {
		return nil, err
	}

	tests, finalProject, err := encodeCourseDocs(course)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE courses
		   SET slug = $2, title = $3, description = $4, small_description = $5,
		       category = $6, level = $7, duration = $8, price = $9, status = $10,
		       file_key = $11, tests = $12, final_project = $13, updated_at = $14
		 WHERE id = $1
	`
	_, err = tx.Exec(ctx, query,
		course.ID,
		course.Slug,
		course.Title,
		course.Description,
		course.SmallDescription,
		course.Category,
		course.Level,
		course.Duration,
		course.Price,
		course.Status,
		course.FileKey,
		tests,
		finalProject,
		course.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, courseSlugKey) {
			return nil, app_errors.ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return course, nil
}

// DeleteCourse removes the course. With cascade its enrollments are deleted,
// otherwise they are kept and deactivated.
func (r *CoursePostgres) DeleteCourse(ctx context.Context, id uuid.UUID, cascade bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmdTag, err := tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return app_errors.ErrCourseNotFound
	}

	if cascade {
		_, err = tx.Exec(ctx, `DELETE FROM enrollments WHERE course_id = $1`, id)
	} else {
		_, err = tx.Exec(ctx, `UPDATE enrollments SET is_active = FALSE, updated_at = NOW() WHERE course_id = $1`, id)
	}
	if err != nil {
		return fmt.Errorf("failed to release enrollments of course %s: %w", id, err)
	}

	return tx.Commit(ctx)
}
