// Package response turns service errors into JSON error bodies and parses
// request input shared by the handlers.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/validation"
)

const internalMessage = "internal server error"

var kindStatus = map[error]int{
	app_errors.ErrValidation:   http.StatusBadRequest,
	app_errors.ErrUnauthorized: http.StatusUnauthorized,
	app_errors.ErrForbidden:    http.StatusForbidden,
	app_errors.ErrNotFound:     http.StatusNotFound,
	app_errors.ErrConflict:     http.StatusConflict,
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	if errors.Is(err, app_errors.ErrFileSize) {
		return http.StatusRequestEntityTooLarge
	}
	if code, ok := kindStatus[app_errors.Kind(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func body(c *gin.Context, err error) (int, gin.H) {
	code := Status(err)
	if code == http.StatusInternalServerError {
		// the access log reports the cause; clients get a generic message
		_ = c.Error(err)
		return code, gin.H{"error": internalMessage}
	}
	var ve *app_errors.ValidationError
	if errors.As(err, &ve) {
		return code, gin.H{"error": app_errors.ErrValidation.Error(), "details": ve.Fields}
	}
	return code, gin.H{"error": err.Error()}
}

func Error(c *gin.Context, err error) {
	code, h := body(c, err)
	c.JSON(code, h)
}

// Abort writes the error and stops the handler chain.
func Abort(c *gin.Context, err error) {
	code, h := body(c, err)
	c.AbortWithStatusJSON(code, h)
}

// BindJSON decodes the request body into v and reports binding failures as validation errors.
func BindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return validation.Translate(err)
	}
	return nil
}

func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, app_errors.Invalid(name, "must be a valid UUID")
	}
	return id, nil
}
