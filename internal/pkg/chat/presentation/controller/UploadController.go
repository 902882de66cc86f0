package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/storage/port"
	apperrors "marketplace-chat/pkg/errors"
)

// UploadController handles PUT /uploads/*key, the signed upload target of
// stores that receive objects through this service. The signature in the
// query string is the credential, so no bearer token is required.
type UploadController struct {
	Target port.UploadTarget
	Log    logrus.FieldLogger
}

func NewUploadController(target port.UploadTarget, log logrus.FieldLogger) *UploadController {
	return &UploadController{Target: target, Log: log}
}

func (h *UploadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		query := make(map[string]string, len(c.Request.URL.Query()))
		for k, v := range c.Request.URL.Query() {
			if len(v) > 0 {
				query[k] = v[0]
			}
		}

		err := h.Target.Accept(c.Request.Context(), key, query, c.ContentType(), c.Request.Body)
		switch {
		case err == nil:
			c.Status(http.StatusNoContent)
		case errors.Is(err, port.ErrBadSignature):
			respondError(c, apperrors.Forbidden("upload signature is invalid or expired"))
		case errors.Is(err, port.ErrTooLarge):
			respondError(c, apperrors.ErrImageTooLarge)
		case errors.Is(err, port.ErrContentType), errors.Is(err, port.ErrInvalidKey):
			respondError(c, apperrors.Validation(err.Error()))
		default:
			h.Log.WithFields(logrus.Fields{"function": "Upload", "key": key}).WithError(err).Error("upload failed")
			respondError(c, apperrors.Internal("upload failed", err))
		}
	}
}
