package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

type SessionProvider interface {
	Session(ctx context.Context, header http.Header) (*models.Session, error)
}

// Gate is the single authorization check in front of protected routes.
type Gate struct {
	sessions SessionProvider
}

func NewGate(sessions SessionProvider) *Gate {
	return &Gate{sessions: sessions}
}

// RequireSession returns the caller's session. Missing or invalid credentials are
// Unauthorized; a banned user is Forbidden.
func (g *Gate) RequireSession(ctx context.Context, header http.Header) (*models.Session, error) {
	session, err := g.sessions.Session(ctx, header)
	if err != nil {
		if errors.Is(err, app_errors.ErrUnauthorized) {
			return nil, app_errors.ErrSessionRequired
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if session == nil {
		return nil, app_errors.ErrSessionRequired
	}
	if session.Banned {
		return nil, app_errors.ErrUserBanned
	}
	return session, nil
}

// RequireAdmin is RequireSession plus the admin role check.
func (g *Gate) RequireAdmin(ctx context.Context, header http.Header) (*models.Session, error) {
	session, err := g.RequireSession(ctx, header)
	if err != nil {
		return nil, err
	}
	if !session.IsAdmin() {
		return nil, app_errors.ErrAdminRequired
	}
	return session, nil
}
