package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// RequestImageUploadController handles POST /conversations/:conversationId/images/upload-url.
type RequestImageUploadController struct {
	UC *usecase.RequestImageUploadUseCase
}

func NewRequestImageUploadController(uc *usecase.RequestImageUploadUseCase) *RequestImageUploadController {
	return &RequestImageUploadController{UC: uc}
}

type uploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
	Size        int64  `json:"size" binding:"required"`
}

func (h *RequestImageUploadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req uploadURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "contentType and size are required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		grant, err := h.UC.Execute(ctx, usecase.RequestImageUploadInput{
			ConversationID: c.Param("conversationId"),
			UserID:         userID,
			ContentType:    req.ContentType,
			Size:           req.Size,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, grant)
	}
}
