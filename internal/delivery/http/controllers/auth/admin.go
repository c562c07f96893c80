package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/middleware"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/response"
	"github.com/ShaanSolanki/lms/internal/models"
)

type roleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

func (h *AuthHandler) SetRole(c *gin.Context) {
	userID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var input roleRequest
	if err := response.BindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}
	admin := middleware.Session(c)
	if userID == admin.UserID && input.Role != models.RoleAdmin {
		response.Error(c, app_errors.Invalid("role", "admins cannot demote themselves"))
		return
	}

	if err := h.AuthService.SetRole(c.Request.Context(), userID, input.Role); err != nil {
		response.Error(c, err)
		return
	}
	h.log.Info("user role changed", "user_id", userID, "role", input.Role, "admin_id", admin.UserID)
	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}

type banRequest struct {
	Reason    string     `json:"reason" binding:"max=500"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

func (h *AuthHandler) Ban(c *gin.Context) {
	userID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var input banRequest
	if err := response.BindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}
	admin := middleware.Session(c)
	if userID == admin.UserID {
		response.Error(c, app_errors.Invalid("id", "admins cannot ban themselves"))
		return
	}

	if err := h.AuthService.Ban(c.Request.Context(), userID, input.Reason, input.ExpiresAt); err != nil {
		response.Error(c, err)
		return
	}
	h.log.Info("user banned", "user_id", userID, "admin_id", admin.UserID)
	c.JSON(http.StatusOK, gin.H{"message": "user banned"})
}

func (h *AuthHandler) Unban(c *gin.Context) {
	userID, err := response.UUIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.AuthService.Unban(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user unbanned"})
}
