package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	"marketplace-chat/internal/pkg/chat/application/presence"
	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// ListParticipantsController handles GET /conversations/:conversationId/participants.
type ListParticipantsController struct {
	UC *usecase.ListParticipantsUseCase
}

func NewListParticipantsController(uc *usecase.ListParticipantsUseCase) *ListParticipantsController {
	return &ListParticipantsController{UC: uc}
}

type participantDTO struct {
	Profile  chat.Profile `json:"profile"`
	Presence presenceDTO  `json:"presence"`
}

func (h *ListParticipantsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		parts, err := h.UC.Execute(ctx, usecase.ListParticipantsInput{ConversationID: c.Param("conversationId"), UserID: userID})
		if err != nil {
			respondError(c, err)
			return
		}
		out := make([]participantDTO, 0, len(parts))
		for _, p := range parts {
			rec := p.Presence
			out = append(out, participantDTO{
				Profile:  p.Profile,
				Presence: toPresenceDTO(p.Profile.UserID, rec, rec.Status != presence.StatusOffline),
			})
		}
		c.JSON(http.StatusOK, gin.H{"participants": out})
	}
}
