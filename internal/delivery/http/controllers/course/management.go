package course

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/response"
	"github.com/ShaanSolanki/lms/internal/models"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

type ManagementService interface {
	Create(ctx context.Context, c models.Course) (*models.Course, error)
	Update(ctx context.Context, id uuid.UUID, patch models.CoursePatch) (*models.Course, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ManagementHandler struct {
	log     logger.Log
	service ManagementService
	views   Views
}

func NewManagementHandler(l logger.Log, s ManagementService, views Views) *ManagementHandler {
	return &ManagementHandler{
		log:     l,
		service: s,
		views:   views,
	}
}

func (h *ManagementHandler) CreateCourse(c *gin.Context) {
	var input models.Course
	if err := response.BindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.log.Info("course created", "course_id", created.ID, "slug", created.Slug)
	c.JSON(http.StatusCreated, h.views.Course(*created))
}

func (h *ManagementHandler) UpdateCourse(c *gin.Context) {
	courseID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var patch models.CoursePatch
	if err := response.BindJSON(c, &patch); err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), courseID, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, h.views.Course(*updated))
}

func (h *ManagementHandler) DeleteCourse(c *gin.Context) {
	courseID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), courseID); err != nil {
		response.Error(c, err)
		return
	}
	h.log.Info("course deleted", "course_id", courseID)
	c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully"})
}
