package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// EraseImageController handles DELETE /messages/:messageId/image.
type EraseImageController struct {
	UC *usecase.EraseImageUseCase
}

func NewEraseImageController(uc *usecase.EraseImageUseCase) *EraseImageController {
	return &EraseImageController{UC: uc}
}

func (h *EraseImageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		img, err := h.UC.Execute(ctx, usecase.EraseImageInput{MessageID: c.Param("messageId"), UserID: userID})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messageId": img.MessageID, "storageKey": img.StorageKey, "erased": true})
	}
}
