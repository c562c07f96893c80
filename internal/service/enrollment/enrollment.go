package enrollment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
	"github.com/ShaanSolanki/lms/internal/validation"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

const maxSubmissionFiles = 10

type enrollmentRepo interface {
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
	EnrollmentByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error)
	EnrollmentByUserAndCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
	ListEnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error)
	UpdateEnrollment(ctx context.Context, id uuid.UUID, apply func(*models.Enrollment) error) (*models.Enrollment, error)
}

type courseRepo interface {
	CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
}

type submissionStore interface {
	Exists(ctx context.Context, key string) (bool, error)
}

type EnrollmentService struct {
	log         logger.Log
	enrollments enrollmentRepo
	courses     courseRepo
	submissions submissionStore
	validate    *validation.Validator
	now         func() time.Time
}

func NewEnrollmentService(
	log logger.Log,
	enrollments enrollmentRepo,
	courses courseRepo,
	submissions submissionStore,
	v *validation.Validator,
) *EnrollmentService {
	return &EnrollmentService{
		log:         log,
		enrollments: enrollments,
		courses:     courses,
		submissions: submissions,
		validate:    v,
		now:         time.Now,
	}
}

// Enroll subscribes the user to a published course. A second enrollment in the same
// course is rejected by the store's unique key.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	course, err := s.courses.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != models.StatusPublished {
		return nil, app_errors.ErrCourseNotPublished
	}

	now := s.now().UTC()
	e := &models.Enrollment{
		ID:          uuid.New(),
		UserID:      userID,
		CourseID:    courseID,
		EnrolledAt:  now,
		TestResults: []models.TestResult{},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.enrollments.CreateEnrollment(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("user enrolled", "user_id", userID, "course_id", courseID, "enrollment_id", e.ID)
	return e, nil
}

func (s *EnrollmentService) Enrollment(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	return s.enrollments.EnrollmentByUserAndCourse(ctx, userID, courseID)
}

func (s *EnrollmentService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	return s.enrollments.ListEnrollmentsByUser(ctx, userID)
}

// owned loads the enrollment and checks that actor may act on it.
func (s *EnrollmentService) owned(ctx context.Context, actor *models.Session, id uuid.UUID, allowAdmin bool) (*models.Enrollment, error) {
	e, err := s.enrollments.EnrollmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != actor.UserID && !(allowAdmin && actor.IsAdmin()) {
		return nil, app_errors.ErrNotEnrollmentOwner
	}
	return e, nil
}

// RecordTestResult grades an attempt and appends it to the enrollment. Every attempt is kept.
func (s *EnrollmentService) RecordTestResult(ctx context.Context, actor *models.Session, enrollmentID, testID uuid.UUID, answers []models.Answer) (*models.TestResult, *models.Enrollment, error) {
	e, err := s.owned(ctx, actor, enrollmentID, true)
	if err != nil {
		return nil, nil, err
	}
	course, err := s.courses.CourseByID(ctx, e.CourseID)
	if err != nil {
		return nil, nil, err
	}
	test, ok := course.Test(testID)
	if !ok {
		return nil, nil, app_errors.ErrTestNotFound
	}
	records, score, err := Score(test, answers)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	result := models.TestResult{
		TestID:      testID,
		Score:       score,
		Passed:      Passed(test, records),
		CompletedAt: now,
		Answers:     records,
	}
	updated, err := s.enrollments.UpdateEnrollment(ctx, enrollmentID, func(e *models.Enrollment) error {
		if !e.IsActive {
			return app_errors.ErrEnrollmentInactive
		}
		e.TestResults = append(e.TestResults, result)
		s.advance(e, course, now)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &result, updated, nil
}

// advance recomputes progress without ever lowering it and stamps the first completion.
func (s *EnrollmentService) advance(e *models.Enrollment, course *models.Course, now time.Time) {
	if p := Progress(course, e.TestResults, e.FinalProjectSubmission); p > e.Progress {
		e.Progress = p
	}
	if e.Progress >= 100 && e.CompletedAt == nil {
		e.CompletedAt = &now
	}
	e.UpdatedAt = now
}

func (s *EnrollmentService) SubmitFinalProject(ctx context.Context, actor *models.Session, enrollmentID uuid.UUID, fileKeys []string) (*models.Enrollment, error) {
	e, err := s.owned(ctx, actor, enrollmentID, false)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.CourseByID(ctx, e.CourseID)
	if err != nil {
		return nil, err
	}
	if course.FinalProject == nil {
		return nil, app_errors.ErrNoFinalProject
	}
	keys, err := s.checkSubmissionFiles(ctx, actor.UserID, fileKeys)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	return s.enrollments.UpdateEnrollment(ctx, enrollmentID, func(e *models.Enrollment) error {
		if !e.IsActive {
			return app_errors.ErrEnrollmentInactive
		}
		if prev := e.FinalProjectSubmission; prev != nil {
			switch prev.Status {
			case models.SubmissionInReview:
				return app_errors.ErrSubmissionPending
			case models.SubmissionPass:
				return app_errors.ErrSubmissionPassed
			}
		}
		e.FinalProjectSubmission = &models.FinalProjectSubmission{
			Status:      models.SubmissionInReview,
			SubmittedAt: now,
			FileKeys:    keys,
		}
		e.UpdatedAt = now
		return nil
	})
}

func (s *EnrollmentService) checkSubmissionFiles(ctx context.Context, userID uuid.UUID, fileKeys []string) ([]string, error) {
	if len(fileKeys) == 0 {
		return nil, app_errors.Invalid("fileKeys", "must contain at least 1 item")
	}
	if len(fileKeys) > maxSubmissionFiles {
		return nil, app_errors.Invalid("fileKeys", "must contain at most 10 items")
	}

	prefix := userID.String() + "/"
	seen := make(map[string]bool, len(fileKeys))
	keys := make([]string, 0, len(fileKeys))
	for _, key := range fileKeys {
		key = strings.TrimSpace(key)
		if seen[key] {
			continue
		}
		seen[key] = true
		if !strings.HasPrefix(key, prefix) {
			return nil, app_errors.ErrNotFileOwner
		}
		ok, err := s.submissions.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, app_errors.Invalid("fileKeys", "reference a file that was not uploaded: "+key)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ReviewFinalProject records an admin's verdict on a submission awaiting review.
func (s *EnrollmentService) ReviewFinalProject(ctx context.Context, enrollmentID uuid.UUID, review models.ProjectReview) (*models.Enrollment, error) {
	if err := s.validate.Struct(review); err != nil {
		return nil, err
	}
	e, err := s.enrollments.EnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.CourseByID(ctx, e.CourseID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	return s.enrollments.UpdateEnrollment(ctx, enrollmentID, func(e *models.Enrollment) error {
		sub := e.FinalProjectSubmission
		if sub == nil || sub.Status != models.SubmissionInReview {
			return app_errors.ErrNoSubmission
		}
		sub.Status = review.Status
		sub.ReviewedAt = &now
		sub.Feedback = strings.TrimSpace(review.Feedback)
		sub.Grade = review.Grade
		s.advance(e, course, now)
		return nil
	})
}

// SetActive drops or resumes an enrollment. Admins may toggle any enrollment.
func (s *EnrollmentService) SetActive(ctx context.Context, actor *models.Session, enrollmentID uuid.UUID, active bool) (*models.Enrollment, error) {
	if _, err := s.owned(ctx, actor, enrollmentID, true); err != nil {
		return nil, err
	}
	return s.enrollments.UpdateEnrollment(ctx, enrollmentID, func(e *models.Enrollment) error {
		e.IsActive = active
		e.UpdatedAt = s.now().UTC()
		return nil
	})
}
