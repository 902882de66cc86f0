package controller

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/infrastructure/identity"
	"marketplace-chat/internal/pkg/chat/application/archival"
	"marketplace-chat/internal/pkg/chat/application/presence"
	apperrors "marketplace-chat/pkg/errors"
)

// adminJobTimeout is generous: a cleanup run walks every expired image.
const adminJobTimeout = 10 * time.Minute

// AdminJobController handles POST /admin/jobs/:name, running an archival job
// on demand with the same code path as the scheduler.
type AdminJobController struct {
	Jobs  *archival.Jobs
	Token string
	Now   func() time.Time
}

func NewAdminJobController(jobs *archival.Jobs, token string) *AdminJobController {
	return &AdminJobController{Jobs: jobs, Token: token, Now: time.Now}
}

func (h *AdminJobController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authorizeAdmin(c, h.Token) {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), adminJobTimeout)
		defer cancel()

		sum, err := h.Jobs.Run(ctx, c.Param("name"), h.Now().UTC())
		if errors.Is(err, archival.ErrUnknownJob) {
			respondError(c, apperrors.NotFound(err.Error()))
			return
		}
		if err != nil {
			respondError(c, apperrors.Internal("job failed", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": sum})
	}
}

// authorizeAdmin checks the shared admin bearer token and writes the 401
// itself when it does not match. An empty configured token disables admin
// routes.
func authorizeAdmin(c *gin.Context, token string) bool {
	tok := identity.FromAuthorization(c.GetHeader("Authorization"))
	if token == "" || subtle.ConstantTimeCompare([]byte(tok), []byte(token)) != 1 {
		respondError(c, apperrors.Unauthenticated("admin token required"))
		return false
	}
	return true
}

// AdminPresenceController handles GET /admin/presence: how many users hold
// a live presence record across the cluster.
type AdminPresenceController struct {
	Presence *presence.Tracker
	Token    string
}

func NewAdminPresenceController(tracker *presence.Tracker, token string) *AdminPresenceController {
	return &AdminPresenceController{Presence: tracker, Token: token}
}

func (h *AdminPresenceController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authorizeAdmin(c, h.Token) {
			return
		}
		n, err := h.Presence.OnlineCount(c.Request.Context())
		if err != nil {
			respondError(c, apperrors.Internal("presence unavailable", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"onlineUsers": n})
	}
}
