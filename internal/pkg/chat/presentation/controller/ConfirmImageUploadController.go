package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// ConfirmImageUploadController handles POST /conversations/:conversationId/images/confirm.
type ConfirmImageUploadController struct {
	UC        *usecase.ConfirmImageUploadUseCase
	Publisher *Publisher
}

func NewConfirmImageUploadController(uc *usecase.ConfirmImageUploadUseCase, pub *Publisher) *ConfirmImageUploadController {
	return &ConfirmImageUploadController{UC: uc, Publisher: pub}
}

type confirmImageRequest struct {
	StorageKey string  `json:"storageKey"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Caption    *string `json:"caption"`
}

func (h *ConfirmImageUploadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req confirmImageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "malformed body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		sent, err := h.UC.Execute(ctx, usecase.ConfirmImageUploadInput{
			ConversationID: c.Param("conversationId"),
			UserID:         userID,
			StorageKey:     req.StorageKey,
			Width:          req.Width,
			Height:         req.Height,
			Caption:        req.Caption,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		h.Publisher.MessageSent(ctx, sent, nil)
		c.JSON(http.StatusCreated, toSentMessageDTO(sent))
	}
}
