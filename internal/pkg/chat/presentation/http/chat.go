package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/identity"
	"marketplace-chat/internal/pkg/chat/presentation/controller"
	apperrors "marketplace-chat/pkg/errors"
)

// Authenticate verifies the bearer credential and stores the caller id
// under controller.UserIDKey.
func Authenticate(v identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := v.Verify(c.Request.Context(), identity.FromAuthorization(c.GetHeader("Authorization")))
		if err != nil {
			kind, msg := apperrors.Public(apperrors.ErrUnauthenticated)
			c.AbortWithStatusJSON(controller.HTTPStatus(kind), gin.H{"error": gin.H{"kind": kind, "message": msg}})
			return
		}
		c.Set(controller.UserIDKey, userID)
		c.Next()
	}
}

// RequestLogger logs one line per request with the errors controllers
// attached to the context.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"user_id":  c.GetString(controller.UserIDKey),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithError(c.Errors.Last().Err)
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Info("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
