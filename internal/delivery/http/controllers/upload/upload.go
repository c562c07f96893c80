package upload

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/middleware"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/response"
	"github.com/ShaanSolanki/lms/internal/models"
	uploadservice "github.com/ShaanSolanki/lms/internal/service/upload"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

const (
	formField = "file"
	// room for the multipart envelope around the file
	formOverhead   = 1 << 20
	thumbnailCache = "public, max-age=31536000"
)

type Service interface {
	UploadThumbnail(ctx context.Context, f uploadservice.File) (string, error)
	UploadSubmission(ctx context.Context, actor *models.Session, f uploadservice.File) (string, error)
	Thumbnail(ctx context.Context, key string) (*models.Object, error)
	DeleteThumbnail(ctx context.Context, key string) error
	SubmissionURL(ctx context.Context, actor *models.Session, key string) (string, error)
}

type Handler struct {
	log           logger.Log
	service       Service
	thumbnailBase string
}

func NewHandler(l logger.Log, s Service, publicBaseURL string) *Handler {
	return &Handler{
		log:           l,
		service:       s,
		thumbnailBase: strings.TrimRight(publicBaseURL, "/") + "/v1/files/thumbnails/",
	}
}

// formFile opens the uploaded file, refusing bodies larger than limit.
func formFile(c *gin.Context, limit int64) (uploadservice.File, func(), error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formOverhead)
	header, err := c.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return uploadservice.File{}, nil, app_errors.ErrFileSize
		}
		return uploadservice.File{}, nil, app_errors.Invalid(formField, "is required")
	}
	f, err := header.Open()
	if err != nil {
		return uploadservice.File{}, nil, err
	}
	return uploadservice.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func (h *Handler) UploadThumbnail(c *gin.Context) {
	file, closeFile, err := formFile(c, uploadservice.MaxThumbnailSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()

	key, err := h.service.UploadThumbnail(c.Request.Context(), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key, "url": h.thumbnailBase + url.PathEscape(key)})
}

func (h *Handler) DeleteThumbnail(c *gin.Context) {
	if err := h.service.DeleteThumbnail(c.Request.Context(), c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}

func (h *Handler) UploadSubmission(c *gin.Context) {
	file, closeFile, err := formFile(c, uploadservice.MaxSubmissionSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()

	key, err := h.service.UploadSubmission(c.Request.Context(), middleware.Session(c), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

// Thumbnail streams a course image through the API.
func (h *Handler) Thumbnail(c *gin.Context) {
	obj, err := h.service.Thumbnail(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer obj.Body.Close()

	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, map[string]string{
		"Cache-Control":           thumbnailCache,
		"X-Content-Type-Options":  "nosniff",
		"Content-Security-Policy": "default-src 'none'; sandbox",
	})
}

// Submission redirects the caller to a presigned download link.
func (h *Handler) Submission(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	link, err := h.service.SubmissionURL(c.Request.Context(), middleware.Session(c), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusTemporaryRedirect, link)
}
