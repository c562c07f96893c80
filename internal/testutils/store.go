// Package testutils holds in-memory stand-ins for the Postgres, MinIO and
// Elasticsearch stores plus fixture builders, shared by service and handler tests.
package testutils

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

// Store keeps courses and enrollments in memory and enforces the same unique
// keys as the database schema.
type Store struct {
	mu          sync.Mutex
	courses     map[uuid.UUID]*models.Course
	enrollments map[uuid.UUID]*models.Enrollment
}

func NewStore() *Store {
	return &Store{
		courses:     map[uuid.UUID]*models.Course{},
		enrollments: map[uuid.UUID]*models.Enrollment{},
	}
}

func (s *Store) CreateCourse(_ context.Context, c *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.courses {
		if existing.Slug == c.Slug {
			return app_errors.ErrSlugTaken
		}
	}
	s.courses[c.ID] = CloneCourse(c)
	return nil
}

func (s *Store) CourseByID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, app_errors.ErrCourseNotFound
	}
	return CloneCourse(c), nil
}

func (s *Store) CoursesByIDs(_ context.Context, ids []uuid.UUID) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.courses[id]; ok {
			out = append(out, *CloneCourse(c))
		}
	}
	return out, nil
}

func (s *Store) ListCourses(_ context.Context, f models.CourseFilter, limit, offset int) ([]models.Course, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []models.Course
	for _, c := range s.courses {
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if f.Level != "" && c.Level != f.Level {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		matched = append(matched, *CloneCourse(c))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) < 0
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return []models.Course{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *Store) UpdateCourse(_ context.Context, id uuid.UUID, apply func(*models.Course) error) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.courses[id]
	if !ok {
		return nil, app_errors.ErrCourseNotFound
	}
	c := CloneCourse(stored)
	if err := apply(c); err != nil {
		return nil, err
	}
	for otherID, other := range s.courses {
		if otherID != id && other.Slug == c.Slug {
			return nil, app_errors.ErrSlugTaken
		}
	}
	s.courses[id] = CloneCourse(c)
	return c, nil
}

func (s *Store) DeleteCourse(_ context.Context, id uuid.UUID, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return app_errors.ErrCourseNotFound
	}
	delete(s.courses, id)
	for eid, e := range s.enrollments {
		if e.CourseID != id {
			continue
		}
		if cascade {
			delete(s.enrollments, eid)
		} else {
			e.IsActive = false
		}
	}
	return nil
}

func (s *Store) CreateEnrollment(_ context.Context, e *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.enrollments {
		if existing.UserID == e.UserID && existing.CourseID == e.CourseID {
			return app_errors.ErrAlreadyEnrolled
		}
	}
	s.enrollments[e.ID] = CloneEnrollment(e)
	return nil
}

func (s *Store) EnrollmentByID(_ context.Context, id uuid.UUID) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, app_errors.ErrEnrollmentNotFound
	}
	return CloneEnrollment(e), nil
}

func (s *Store) EnrollmentByUserAndCourse(_ context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return CloneEnrollment(e), nil
		}
	}
	return nil, app_errors.ErrEnrollmentNotFound
}

func (s *Store) ListEnrollmentsByUser(_ context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Enrollment{}
	for _, e := range s.enrollments {
		if e.UserID == userID {
			out = append(out, *CloneEnrollment(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.After(out[j].EnrolledAt) })
	return out, nil
}

func (s *Store) UpdateEnrollment(_ context.Context, id uuid.UUID, apply func(*models.Enrollment) error) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.enrollments[id]
	if !ok {
		return nil, app_errors.ErrEnrollmentNotFound
	}
	e := CloneEnrollment(stored)
	if err := apply(e); err != nil {
		return nil, err
	}
	s.enrollments[id] = CloneEnrollment(e)
	return e, nil
}

func CloneCourse(c *models.Course) *models.Course {
	cp := *c
	if c.Tests != nil {
		cp.Tests = make([]models.Test, len(c.Tests))
		for i, t := range c.Tests {
			t.Questions = append([]models.Question(nil), t.Questions...)
			for j := range t.Questions {
				t.Questions[j].Options = append([]string(nil), t.Questions[j].Options...)
			}
			if t.TimeLimit != nil {
				limit := *t.TimeLimit
				t.TimeLimit = &limit
			}
			cp.Tests[i] = t
		}
	}
	if c.FinalProject != nil {
		fp := *c.FinalProject
		fp.Requirements = append([]string(nil), fp.Requirements...)
		cp.FinalProject = &fp
	}
	return &cp
}

func CloneEnrollment(e *models.Enrollment) *models.Enrollment {
	cp := *e
	if e.CompletedAt != nil {
		at := *e.CompletedAt
		cp.CompletedAt = &at
	}
	if e.TestResults != nil {
		cp.TestResults = make([]models.TestResult, len(e.TestResults))
		for i, r := range e.TestResults {
			r.Answers = append([]models.AnswerRecord(nil), r.Answers...)
			cp.TestResults[i] = r
		}
	}
	if e.FinalProjectSubmission != nil {
		sub := *e.FinalProjectSubmission
		sub.FileKeys = append([]string(nil), sub.FileKeys...)
		if sub.ReviewedAt != nil {
			at := *sub.ReviewedAt
			sub.ReviewedAt = &at
		}
		if sub.Grade != nil {
			g := *sub.Grade
			sub.Grade = &g
		}
		cp.FinalProjectSubmission = &sub
	}
	return &cp
}
