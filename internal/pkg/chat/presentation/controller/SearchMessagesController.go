package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/ratelimit"
	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// SearchMessagesController handles GET /messages/search.
type SearchMessagesController struct {
	UC      *usecase.SearchMessagesUseCase
	Limiter RateLimiter
	Log     logrus.FieldLogger
}

func NewSearchMessagesController(uc *usecase.SearchMessagesUseCase, limiter RateLimiter, log logrus.FieldLogger) *SearchMessagesController {
	return &SearchMessagesController{UC: uc, Limiter: limiter, Log: log}
}

func (h *SearchMessagesController) Handle() gin.HandlerFunc {
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

		if err := checkRate(ctx, h.Limiter, h.Log, ratelimit.ActionSearch, userID); err != nil {
			respondError(c, err)
			return
		}
		msgs, err := h.UC.Execute(ctx, usecase.SearchMessagesInput{
			UserID:         userID,
			Query:          c.Query("q"),
			ConversationID: c.Query("conversation_id"),
			Limit:          limit,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": toMessageDTOs(msgs)})
	}
}
