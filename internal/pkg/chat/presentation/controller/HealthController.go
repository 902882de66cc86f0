package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController handles GET /healthz.
type HealthController struct {
	Checks map[string]Pinger
	Log    logrus.FieldLogger
}

func NewHealthController(checks map[string]Pinger, log logrus.FieldLogger) *HealthController {
	return &HealthController{Checks: checks, Log: log}
}

func (h *HealthController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		status := http.StatusOK
		deps := make(gin.H, len(h.Checks))
		for name, p := range h.Checks {
			if err := p.Ping(ctx); err != nil {
				h.Log.WithFields(logrus.Fields{"function": "Health", "dependency": name}).WithError(err).Warn("health check failed")
				deps[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "up"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "dependencies": deps})
	}
}
