package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	apperrors "marketplace-chat/pkg/errors"
)

// ErrPersistence indicates an infrastructure/repository failure inside a use case
var ErrPersistence = fmt.Errorf("chat use case persistence error")

func persistence(err error) error {
	return apperrors.Internal("storage failure", fmt.Errorf("%w: %v", ErrPersistence, err))
}

// loadChat resolves a conversation and checks that userID is one of its
// participants. Missing ids are NotFound, outsiders Forbidden.
func loadChat(ctx context.Context, repo repository.ChatRepository, conversationID, userID string) (*chat.Chat, error) {
	if conversationID == "" {
		return nil, apperrors.Validation("conversation_id is required")
	}
	if userID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	c, err := repo.GetConversation(ctx, conversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrConversationNotFound
	}
	if err != nil {
		return nil, persistence(err)
	}
	agg := &chat.Chat{Conversation: *c}
	if !agg.HasParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	return agg, nil
}
