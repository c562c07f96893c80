package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/middleware"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/response"
	"github.com/ShaanSolanki/lms/internal/models"
	authservice "github.com/ShaanSolanki/lms/internal/service/auth"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	SendVerificationOTP(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	User(ctx context.Context, id uuid.UUID) (*models.User, error)
	GitHubAuthURL(ctx context.Context) (string, error)
	GitHubCallback(ctx context.Context, code, state string) (*models.TokenPair, error)
	SetRole(ctx context.Context, userID uuid.UUID, role models.Role) error
	Ban(ctx context.Context, userID uuid.UUID, reason string, expires *time.Time) error
	Unban(ctx context.Context, userID uuid.UUID) error
}

type AuthHandler struct {
	AuthService   AuthService
	log           logger.Log
	secureCookies bool
}

func NewAuthHandler(l logger.Log, auth AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		AuthService:   auth,
		log:           l,
		secureCookies: secureCookies,
	}
}

// setSession mirrors the access token into the session cookie for browser clients.
func (h *AuthHandler) setSession(c *gin.Context, pair *models.TokenPair) {
	maxAge := int(time.Until(pair.AccessExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authservice.SessionCookie, pair.AccessToken, maxAge, "/", "", h.secureCookies, true)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.AuthService.User(c.Request.Context(), middleware.Session(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input registerRequest
	if err := response.BindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.AuthService.Register(c.Request.Context(), input.Name, input.Email, input.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.log.Info("user registered", "user_id", user.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "registration success, check your email for the verification code",
		"user":    user,
	})
}

type otpRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *AuthHandler) SendOTP(c *gin.Context) {
	var input otpRequest
	if err := response.BindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.AuthService.SendVerificationOTP(c.Request.Context(), input.Email); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "if the address is registered, a code has been sent"})
}

type verifyRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var input verifyRequest
	if err := response.BindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.AuthService.VerifyEmail(c.Request.Context(), input.Email, input.Code); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input loginRequest
	if err := response.BindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	pair, err := h.AuthService.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setSession(c, pair)
	c.JSON(http.StatusOK, pair)
}

type tokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var input tokenRefreshRequest
	if err := response.BindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	pair, err := h.AuthService.RefreshTokens(c.Request.Context(), input.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setSession(c, pair)
	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.AuthService.Logout(c.Request.Context(), middleware.Session(c).UserID); err != nil {
		response.Error(c, err)
		return
	}
	c.SetCookie(authservice.SessionCookie, "", -1, "/", "", h.secureCookies, true)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) GitHubLogin(c *gin.Context) {
	link, err := h.AuthService.GitHubAuthURL(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, link)
}

func (h *AuthHandler) GitHubCallback(c *gin.Context) {
	pair, err := h.AuthService.GitHubCallback(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setSession(c, pair)
	c.JSON(http.StatusOK, pair)
}
