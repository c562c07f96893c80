package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/response"
	"github.com/ShaanSolanki/lms/internal/models"
)

const SessionCtx = "session"

type Gate interface {
	RequireSession(ctx context.Context, header http.Header) (*models.Session, error)
	RequireAdmin(ctx context.Context, header http.Header) (*models.Session, error)
}

type AuthMiddlewareProvider struct {
	gate Gate
}

func NewAuthMiddlewareProvider(g Gate) *AuthMiddlewareProvider {
	return &AuthMiddlewareProvider{gate: g}
}

// RequireSession rejects requests without a valid session.
func (p *AuthMiddlewareProvider) RequireSession(c *gin.Context) {
	session, err := p.gate.RequireSession(c.Request.Context(), c.Request.Header)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.Set(SessionCtx, session)
	c.Next()
}

// RequireAdmin rejects requests whose session does not belong to an admin.
func (p *AuthMiddlewareProvider) RequireAdmin(c *gin.Context) {
	session, err := p.gate.RequireAdmin(c.Request.Context(), c.Request.Header)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.Set(SessionCtx, session)
	c.Next()
}

// OptionalSession attaches the session when the request carries a valid one and never rejects.
func (p *AuthMiddlewareProvider) OptionalSession(c *gin.Context) {
	if session, err := p.gate.RequireSession(c.Request.Context(), c.Request.Header); err == nil {
		c.Set(SessionCtx, session)
	}
	c.Next()
}

// Session returns the session attached by one of the middlewares, or nil.
func Session(c *gin.Context) *models.Session {
	v, ok := c.Get(SessionCtx)
	if !ok {
		return nil
	}
	s, _ := v.(*models.Session)
	return s
}
