package enrollment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/middleware"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/response"
	"github.com/ShaanSolanki/lms/internal/models"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

type Service interface {
	Enroll(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
	Enrollment(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error)
	RecordTestResult(ctx context.Context, actor *models.Session, enrollmentID, testID uuid.UUID, answers []models.Answer) (*models.TestResult, *models.Enrollment, error)
	SubmitFinalProject(ctx context.Context, actor *models.Session, enrollmentID uuid.UUID, fileKeys []string) (*models.Enrollment, error)
	ReviewFinalProject(ctx context.Context, enrollmentID uuid.UUID, review models.ProjectReview) (*models.Enrollment, error)
	SetActive(ctx context.Context, actor *models.Session, enrollmentID uuid.UUID, active bool) (*models.Enrollment, error)
}

type Handler struct {
	log     logger.Log
	service Service
}

func NewHandler(l logger.Log, s Service) *Handler {
	return &Handler{log: l, service: s}
}

func (h *Handler) Enroll(c *gin.Context) {
	courseID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	e, err := h.service.Enroll(c.Request.Context(), middleware.Session(c).UserID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) CourseEnrollment(c *gin.Context) {
	courseID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	e, err := h.service.Enrollment(c.Request.Context(), middleware.Session(c).UserID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) MyEnrollments(c *gin.Context) {
	list, err := h.service.ListForUser(c.Request.Context(), middleware.Session(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": list})
}

type testResultRequest struct {
	TestID  uuid.UUID       `json:"testId" binding:"required"`
	Answers []models.Answer `json:"answers"`
}

func (h *Handler) RecordTestResult(c *gin.Context) {
	enrollmentID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var input testResultRequest
	if err := response.BindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	result, e, err := h.service.RecordTestResult(c.Request.Context(), middleware.Session(c), enrollmentID, input.TestID, input.Answers)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": result, "enrollment": e})
}

type submissionRequest struct {
	FileKeys []string `json:"fileKeys"`
}

func (h *Handler) SubmitFinalProject(c *gin.Context) {
	enrollmentID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var input submissionRequest
	if err := response.BindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	e, err := h.service.SubmitFinalProject(c.Request.Context(), middleware.Session(c), enrollmentID, input.FileKeys)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) ReviewFinalProject(c *gin.Context) {
	enrollmentID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var review models.ProjectReview
	if err := response.BindJSON(c, &review); err != nil {
		response.Error(c, err)
		return
	}

	e, err := h.service.ReviewFinalProject(c.Request.Context(), enrollmentID, review)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.log.Info("final project reviewed", "enrollment_id", enrollmentID, "status", review.Status,
		"reviewer_id", middleware.Session(c).UserID)
	c.JSON(http.StatusOK, e)
}

type activeRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func (h *Handler) SetActive(c *gin.Context) {
	enrollmentID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var input activeRequest
	if err := response.BindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	e, err := h.service.SetActive(c.Request.Context(), middleware.Session(c), enrollmentID, *input.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}
