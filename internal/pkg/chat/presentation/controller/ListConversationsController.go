package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// ListConversationsController handles GET /conversations.
type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(uc *usecase.ListConversationsUseCase) *ListConversationsController {
	return &ListConversationsController{UC: uc}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		page, ok := intQuery(c, "page")
		if !ok {
			return
		}
		limit, ok := intQuery(c, "limit")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		out, err := h.UC.Execute(ctx, usecase.ListConversationsInput{
			UserID: userID,
			Status: chat.ConversationStatus(strings.ToUpper(c.Query("status"))),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		items := make([]conversationDTO, 0, len(out.Conversations))
		for _, s := range out.Conversations {
			items = append(items, toSummaryDTO(s))
		}
		c.JSON(http.StatusOK, gin.H{
			"conversations": items,
			"page":          out.Page,
			"limit":         out.Limit,
			"hasMore":       out.HasMore,
		})
	}
}

// intQuery parses an optional integer query parameter; absent means 0 so
// the use case applies its default.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return 0, false
	}
	return n, true
}
