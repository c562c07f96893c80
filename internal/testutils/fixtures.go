package testutils

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/models"
)

const ThumbnailKey = "seeded-thumbnail.png"

// NewCourse builds a valid draft course with one two-question test. The slug is unique per call.
func NewCourse(opts ...CourseOption) models.Course {
	c := models.Course{
		Slug:             fmt.Sprintf("course-%s", uuid.NewString()[:8]),
		Title:            "Intro to Go",
		Description:      "<p>Learn <strong>Go</strong> from scratch.</p>",
		SmallDescription: "Learn Go from scratch",
		Category:         "programming",
		Level:            models.LevelBeginner,
		Duration:         10,
		Price:            0,
		Status:           models.StatusDraft,
		FileKey:          ThumbnailKey,
		Tests: []models.Test{
			{
				Title:        "Basics",
				PassingScore: 50,
				Order:        1,
				Questions: []models.Question{
					{Question: "Which keyword declares a function?", Options: []string{"fn", "func", "def"}, CorrectAnswer: 1},
					{Question: "Zero value of int?", Options: []string{"0", "nil"}, CorrectAnswer: 0},
				},
			},
		},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type CourseOption func(*models.Course)

func WithSlug(slug string) CourseOption {
	return func(c *models.Course) {
		c.Slug = slug
	}
}

func WithTitle(title string) CourseOption {
	return func(c *models.Course) {
		c.Title = title
	}
}

func WithStatus(status models.CourseStatus) CourseOption {
	return func(c *models.Course) {
		c.Status = status
	}
}

func WithCategory(category string) CourseOption {
	return func(c *models.Course) {
		c.Category = category
	}
}

func WithTests(tests ...models.Test) CourseOption {
	return func(c *models.Course) {
		c.Tests = tests
	}
}

func WithFinalProject() CourseOption {
	return func(c *models.Course) {
		c.FinalProject = &models.FinalProject{
			Title:                  "Build a CLI",
			Description:            "Write a small command line tool.",
			Requirements:           []string{"uses flags", "has tests"},
			SubmissionInstructions: "Upload the source archive.",
		}
	}
}

func WithCreatedAt(at time.Time) CourseOption {
	return func(c *models.Course) {
		c.CreatedAt = at
		c.UpdatedAt = at
	}
}

// SeedCourse stores c with a fresh id, filling timestamps when unset.
func (s *Store) SeedCourse(c models.Course) models.Course {
	c.ID = uuid.New()
	for i := range c.Tests {
		if c.Tests[i].ID == uuid.Nil {
			c.Tests[i].ID = uuid.New()
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
		c.UpdatedAt = c.CreatedAt
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = CloneCourse(&c)
	return c
}

func Session(role models.Role) *models.Session {
	id := uuid.New()
	return &models.Session{
		UserID:    id,
		Name:      "Test " + string(role),
		Email:     fmt.Sprintf("%s@example.com", id.String()[:8]),
		Role:      role,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}
