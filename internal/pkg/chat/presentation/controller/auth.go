package controller

import (
	"github.com/gin-gonic/gin"

	apperrors "marketplace-chat/pkg/errors"
)

// UserIDKey is the gin context key the auth middleware stores the caller under.
const UserIDKey = "userID"

// currentUser returns the authenticated caller, answering 401 itself when
// the middleware did not run.
func currentUser(c *gin.Context) (string, bool) {
	id := c.GetString(UserIDKey)
	if id == "" {
		respondError(c, apperrors.ErrUnauthenticated)
		return "", false
	}
	return id, true
}
