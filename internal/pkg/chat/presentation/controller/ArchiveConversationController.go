package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// ArchiveConversationController handles POST /conversations/:conversationId/archive.
type ArchiveConversationController struct {
	UC *usecase.ArchiveConversationUseCase
}

func NewArchiveConversationController(uc *usecase.ArchiveConversationUseCase) *ArchiveConversationController {
	return &ArchiveConversationController{UC: uc}
}

func (h *ArchiveConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		conv, err := h.UC.Execute(ctx, usecase.ArchiveConversationInput{ConversationID: c.Param("conversationId"), UserID: userID})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversation": toConversationDTO(*conv)})
	}
}
