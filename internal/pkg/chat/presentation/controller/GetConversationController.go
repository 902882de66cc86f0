package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// GetConversationController handles GET /conversations/:conversationId.
type GetConversationController struct {
	UC *usecase.GetConversationUseCase
}

func NewGetConversationController(uc *usecase.GetConversationUseCase) *GetConversationController {
	return &GetConversationController{UC: uc}
}

func (h *GetConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		out, err := h.UC.Execute(ctx, usecase.GetConversationInput{ConversationID: c.Param("conversationId"), UserID: userID})
		if err != nil {
			respondError(c, err)
			return
		}
		dto := toConversationDTO(out.Conversation)
		dto.Other = &out.Other
		c.JSON(http.StatusOK, gin.H{"conversation": dto})
	}
}
