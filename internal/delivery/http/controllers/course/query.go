package course

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/middleware"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/response"
	"github.com/ShaanSolanki/lms/internal/models"
	courseservice "github.com/ShaanSolanki/lms/internal/service/course"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

type QueryService interface {
	CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	List(ctx context.Context, f models.CourseFilter, page, limit int) (*models.CoursePage, error)
	Search(ctx context.Context, query string, limit int) ([]models.Course, error)
}

// Views renders courses for API responses.
type Views struct {
	thumbnailBase string
}

func NewViews(publicBaseURL string) Views {
	return Views{thumbnailBase: strings.TrimRight(publicBaseURL, "/") + "/v1/files/thumbnails/"}
}

type courseView struct {
	models.Course
	ThumbnailURL string `json:"thumbnailUrl"`
}

func (v Views) Course(c models.Course) courseView {
	return courseView{Course: c, ThumbnailURL: v.thumbnailBase + url.PathEscape(c.FileKey)}
}

func (v Views) Courses(courses []models.Course) []courseView {
	out := make([]courseView, 0, len(courses))
	for _, c := range courses {
		out = append(out, v.Course(c))
	}
	return out
}

type QueryHandler struct {
	log     logger.Log
	service QueryService
	views   Views
}

func NewQueryHandler(log logger.Log, s QueryService, views Views) *QueryHandler {
	return &QueryHandler{
		log:     log,
		service: s,
		views:   views,
	}
}

// CourseByID hides unpublished courses from everyone but admins.
func (h *QueryHandler) CourseByID(c *gin.Context) {
	courseID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	found, err := h.service.CourseByID(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if found.Status != models.StatusPublished && !middleware.Session(c).IsAdmin() {
		response.Error(c, app_errors.ErrCourseNotFound)
		return
	}
	c.JSON(http.StatusOK, h.views.Course(*found))
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	s := c.Query(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, app_errors.Invalid(name, "must be an integer")
	}
	return v, nil
}

func (h *QueryHandler) ListCourses(c *gin.Context) {
	page, err := intQuery(c, "page", courseservice.DefaultPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := intQuery(c, "limit", courseservice.DefaultLimit)
	if err != nil {
		response.Error(c, err)
		return
	}

	filter := models.CourseFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Level:    models.Level(c.Query("level")),
		Status:   models.CourseStatus(c.Query("status")),
	}
	if !middleware.Session(c).IsAdmin() {
		switch {
		case filter.Status == "":
			filter.Status = models.StatusPublished
		case filter.Status.Valid() && filter.Status != models.StatusPublished:
			response.Error(c, app_errors.ErrCourseStatusHidden)
			return
		}
	}

	result, err := h.service.List(c.Request.Context(), filter, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"courses":    h.views.Courses(result.Courses),
		"pagination": result.Pagination,
	})
}

func (h *QueryHandler) SearchCourses(c *gin.Context) {
	limit, err := intQuery(c, "limit", courseservice.DefaultLimit)
	if err != nil {
		response.Error(c, err)
		return
	}

	found, err := h.service.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": h.views.Courses(found)})
}
