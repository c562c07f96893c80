package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const checkTimeout = 2 * time.Second

// Check probes one backing service.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type StatusHandler struct {
	checks []Check
}

func NewStatusHandler(checks ...Check) *StatusHandler {
	return &StatusHandler{checks: checks}
}

func (h *StatusHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	code, status := http.StatusOK, "Available"
	components := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			components[check.Name] = "down"
			code, status = http.StatusServiceUnavailable, "Degraded"
			_ = c.Error(err)
			continue
		}
		components[check.Name] = "up"
	}
	c.JSON(code, gin.H{"status": status, "components": components})
}
