package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/ratelimit"
	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// CreateConversationController handles POST /conversations.
type CreateConversationController struct {
	UC      *usecase.CreateConversationUseCase
	Limiter RateLimiter
	Log     logrus.FieldLogger
}

func NewCreateConversationController(uc *usecase.CreateConversationUseCase, limiter RateLimiter, log logrus.FieldLogger) *CreateConversationController {
	return &CreateConversationController{UC: uc, Limiter: limiter, Log: log}
}

type createConversationRequest struct {
	OtherUserID string `json:"otherUserId" binding:"required"`
	OriginLink  string `json:"originLink"`
}

func (h *CreateConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req createConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "otherUserId is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := checkRate(ctx, h.Limiter, h.Log, ratelimit.ActionCreateConversation, userID); err != nil {
			respondError(c, err)
			return
		}
		out, err := h.UC.Execute(ctx, usecase.CreateConversationInput{
			RequesterID: userID,
			OtherUserID: req.OtherUserID,
			OriginLink:  req.OriginLink,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		dto := toConversationDTO(out.Conversation)
		dto.Other = &out.Other
		status := http.StatusOK
		if out.Created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"conversation": dto, "created": out.Created})
	}
}
