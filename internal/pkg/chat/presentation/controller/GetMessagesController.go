package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// GetMessagesController handles GET /conversations/:conversationId/messages.
type GetMessagesController struct {
	UC *usecase.FetchMessagesUseCase
}

func NewGetMessagesController(uc *usecase.FetchMessagesUseCase) *GetMessagesController {
	return &GetMessagesController{UC: uc}
}

func (h *GetMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		limit, ok := intQuery(c, "limit")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		page, err := h.UC.Execute(ctx, usecase.FetchMessagesInput{
			ConversationID: c.Param("conversationId"),
			UserID:         userID,
			Cursor:         c.Query("cursor"),
			Limit:          limit,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		body := gin.H{"messages": toMessageDTOs(page.Messages), "hasMore": page.HasMore}
		if page.NextCursor != "" {
			body["nextCursor"] = page.NextCursor
		}
		c.JSON(http.StatusOK, body)
	}
}
