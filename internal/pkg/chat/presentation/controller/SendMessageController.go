package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/ratelimit"
	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// SendMessageController handles POST /conversations/:conversationId/messages.
// Messages sent here reach live rooms through the shared Publisher.
type SendMessageController struct {
	UC        *usecase.SendMessageUseCase
	Publisher *Publisher
	Limiter   RateLimiter
	Log       logrus.FieldLogger
}

func NewSendMessageController(uc *usecase.SendMessageUseCase, pub *Publisher, limiter RateLimiter, log logrus.FieldLogger) *SendMessageController {
	return &SendMessageController{UC: uc, Publisher: pub, Limiter: limiter, Log: log}
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req outgoingMessage
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "malformed message body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := checkRate(ctx, h.Limiter, h.Log, ratelimit.ActionSendMessage, userID); err != nil {
			respondError(c, err)
			return
		}
		sent, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			ConversationID: c.Param("conversationId"),
			SenderID:       userID,
			Type:           req.Type,
			Content:        req.Content,
			AttachmentRef:  req.AttachmentRef,
			Metadata:       req.Metadata,
			Width:          req.Width,
			Height:         req.Height,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		h.Publisher.MessageSent(ctx, sent, nil)
		c.JSON(http.StatusCreated, toSentMessageDTO(sent))
	}
}
