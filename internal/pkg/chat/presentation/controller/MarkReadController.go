package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// MarkReadController handles POST /conversations/:conversationId/read.
type MarkReadController struct {
	UC        *usecase.MarkReadUseCase
	Publisher *Publisher
}

func NewMarkReadController(uc *usecase.MarkReadUseCase, pub *Publisher) *MarkReadController {
	return &MarkReadController{UC: uc, Publisher: pub}
}

type markReadRequest struct {
	MessageID string `json:"messageId"`
	MarkAll   bool   `json:"markAll"`
}

func (h *MarkReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req markReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "malformed body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		convID := c.Param("conversationId")
		at := time.Now().UTC()
		res, err := h.UC.Execute(ctx, usecase.MarkReadInput{
			ConversationID: convID,
			UserID:         userID,
			MessageID:      req.MessageID,
			MarkAll:        req.MarkAll,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		h.Publisher.MessagesRead(ctx, convID, userID, res, at)

		body := gin.H{"count": res.Count, "markAll": res.MarkAll}
		if res.Message != nil {
			body["message"] = toMessageDTO(*res.Message)
		}
		c.JSON(http.StatusOK, body)
	}
}
