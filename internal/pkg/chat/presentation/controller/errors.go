package controller

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/ratelimit"
	apperrors "marketplace-chat/pkg/errors"
)

// requestTimeout bounds every use case call made on behalf of a client.
const requestTimeout = 5 * time.Second

type errorBody struct {
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
}

func newErrorBody(err error) *errorBody {
	kind, msg := apperrors.Public(err)
	return &errorBody{Kind: kind, Message: msg}
}

// HTTPStatus maps an error kind to its REST status code.
func HTTPStatus(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindRateLimited:
		return http.StatusTooManyRequests
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindUnauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes the structured error body and records err on the gin
// context for the request logger.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	body := newErrorBody(err)
	c.AbortWithStatusJSON(HTTPStatus(body.Kind), gin.H{"error": body})
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, apperrors.Validation(msg))
}

// RateLimiter is the per-user quota check shared by REST and realtime.
type RateLimiter interface {
	Allow(ctx context.Context, action ratelimit.Action, userID string) (ratelimit.Decision, error)
}

// checkRate fails open when the limiter itself is unavailable.
func checkRate(ctx context.Context, l RateLimiter, log logrus.FieldLogger, action ratelimit.Action, userID string) error {
	if l == nil {
		return nil
	}
	d, err := l.Allow(ctx, action, userID)
	if err != nil {
		log.WithFields(logrus.Fields{"function": "checkRate", "action": action, "user_id": userID}).
			WithError(err).Warn("rate limiter unavailable; allowing request")
		return nil
	}
	if !d.Allowed {
		return apperrors.RateLimited(fmt.Sprintf("rate limit exceeded for %s, retry in %s", action, d.RetryAfter.Round(time.Second)))
	}
	return nil
}
