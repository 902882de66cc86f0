package usecase

import (
	"context"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
)

// JoinConversationInput validates a request to attach a connection to a conversation room.
type JoinConversationInput struct {
	ConversationID string
	UserID         string
}

// JoinConversationUseCase re-checks membership against the store before the
// gateway subscribes a connection; client-supplied ids are never trusted.
type JoinConversationUseCase struct {
	Repo repository.ChatRepository
}

func NewJoinConversationUseCase(repo repository.ChatRepository) *JoinConversationUseCase {
	return &JoinConversationUseCase{Repo: repo}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, in JoinConversationInput) (*chat.Conversation, error) {
	agg, err := loadChat(ctx, uc.Repo, in.ConversationID, in.UserID)
	if err != nil {
		return nil, err
	}
	return &agg.Conversation, nil
}
