package course

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
	"github.com/ShaanSolanki/lms/internal/validation"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	maxSearchResults = 50
)

type DeletePolicy string

const (
	// DeleteOrphan keeps the enrollments of a deleted course and deactivates them.
	DeleteOrphan  DeletePolicy = "orphan"
	DeleteCascade DeletePolicy = "cascade"
)

type courseRepo interface {
	CreateCourse(ctx context.Context, c *models.Course) error
	CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	CoursesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Course, error)
	ListCourses(ctx context.Context, f models.CourseFilter, limit, offset int) ([]models.Course, int, error)
	UpdateCourse(ctx context.Context, id uuid.UUID, apply func(*models.Course) error) (*models.Course, error)
	DeleteCourse(ctx context.Context, id uuid.UUID, cascade bool) error
}

type searchRepo interface {
	Index(ctx context.Context, course models.Course) error
	Search(ctx context.Context, query string, size int) ([]uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type thumbnailStore interface {
	Exists(ctx context.Context, key string) (bool, error)
}

type CourseService struct {
	log          logger.Log
	courseRepo   courseRepo
	searchRepo   searchRepo
	thumbnails   thumbnailStore
	validate     *validation.Validator
	sanitizer    *bluemonday.Policy
	deletePolicy DeletePolicy
	now          func() time.Time
}

func NewCourseService(
	log logger.Log,
	courseRepo courseRepo,
	searchRepo searchRepo,
	thumbnails thumbnailStore,
	v *validation.Validator,
	policy DeletePolicy,
) *CourseService {
	return &CourseService{
		log:          log,
		courseRepo:   courseRepo,
		searchRepo:   searchRepo,
		thumbnails:   thumbnails,
		validate:     v,
		sanitizer:    bluemonday.UGCPolicy(),
		deletePolicy: policy,
		now:          time.Now,
	}
}

// normalize brings a course into its stored shape before validation.
func (s *CourseService) normalize(c *models.Course) {
	c.Slug = validation.NormalizeSlug(c.Slug)
	c.Title = strings.TrimSpace(c.Title)
	c.SmallDescription = strings.TrimSpace(c.SmallDescription)
	c.Category = strings.TrimSpace(c.Category)
	c.FileKey = strings.TrimSpace(c.FileKey)
	c.Description = strings.TrimSpace(s.sanitizer.Sanitize(c.Description))
	if c.FinalProject != nil {
		c.FinalProject.Description = s.sanitizer.Sanitize(c.FinalProject.Description)
	}
	for i := range c.Tests {
		if c.Tests[i].ID == uuid.Nil {
			c.Tests[i].ID = uuid.New()
		}
	}
	c.SortTests()
}

func (s *CourseService) checkThumbnail(ctx context.Context, key string) error {
	ok, err := s.thumbnails.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check thumbnail %q: %w", key, err)
	}
	if !ok {
		return app_errors.Invalid("fileKey", "does not reference an uploaded file")
	}
	return nil
}

func (s *CourseService) Create(ctx context.Context, c models.Course) (*models.Course, error) {
	if c.Status == "" {
		c.Status = models.StatusDraft
	}
	s.normalize(&c)
	if err := s.validate.Struct(c); err != nil {
		return nil, err
	}
	if err := s.checkThumbnail(ctx, c.FileKey); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c.ID = uuid.New()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.courseRepo.CreateCourse(ctx, &c); err != nil {
		return nil, err
	}

	s.reindex(ctx, c)
	return &c, nil
}

func (s *CourseService) CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	return s.courseRepo.CourseByID(ctx, id)
}

// List returns one newest-first page. Zero page or limit fall back to the defaults.
func (s *CourseService) List(ctx context.Context, f models.CourseFilter, page, limit int) (*models.CoursePage, error) {
	if f.Level != "" && !f.Level.Valid() {
		return nil, app_errors.Invalid("level", "must be one of: beginner intermediate advanced")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, app_errors.Invalid("status", "must be one of: draft published archived")
	}
	if page < 1 {
		return nil, app_errors.Invalid("page", "must be at least 1")
	}
	if limit < 1 {
		return nil, app_errors.Invalid("limit", "must be at least 1")
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	courses, total, err := s.courseRepo.ListCourses(ctx, f, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return &models.CoursePage{
		Courses: courses,
		Pagination: models.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// Update merges patch onto the stored course under a row lock.
func (s *CourseService) Update(ctx context.Context, id uuid.UUID, patch models.CoursePatch) (*models.Course, error) {
	if patch.FileKey != nil {
		// the object store is consulted outside the row lock, but only for a course that exists
		if _, err := s.courseRepo.CourseByID(ctx, id); err != nil {
			return nil, err
		}
		if err := s.checkThumbnail(ctx, strings.TrimSpace(*patch.FileKey)); err != nil {
			return nil, err
		}
	}

	updated, err := s.courseRepo.UpdateCourse(ctx, id, func(c *models.Course) error {
		patch.Apply(c)
		s.normalize(c)
		if err := s.validate.Struct(c); err != nil {
			return err
		}
		c.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.reindex(ctx, *updated)
	return updated, nil
}

func (s *CourseService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.courseRepo.DeleteCourse(ctx, id, s.deletePolicy == DeleteCascade); err != nil {
		return err
	}
	if err := s.searchRepo.Delete(ctx, id); err != nil {
		s.log.ErrorErr("failed to remove course from search index", err, "course_id", id)
	}
	return nil
}

// Search returns published courses matching query, in relevance order.
func (s *CourseService) Search(ctx context.Context, query string, limit int) ([]models.Course, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, app_errors.Invalid("q", "is required")
	}
	if limit < 1 || limit > maxSearchResults {
		limit = DefaultLimit
	}

	ids, err := s.searchRepo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Course{}, nil
	}

	courses, err := s.courseRepo.CoursesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}

	out := make([]models.Course, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		// the index can lag behind the database
		if !ok || c.Status != models.StatusPublished {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *CourseService) reindex(ctx context.Context, c models.Course) {
	if err := s.searchRepo.Index(ctx, c); err != nil {
		s.log.ErrorErr("failed to index course", err, "course_id", c.ID)
	}
}
