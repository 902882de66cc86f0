package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	users "marketplace-chat/internal/repository/port"
)

type GetConversationInput struct {
	ConversationID string
	UserID         string
}

type GetConversationOutput struct {
	Conversation chat.Conversation
	Other        chat.Profile
}

// GetConversationUseCase returns a conversation to one of its participants.
type GetConversationUseCase struct {
	Repo  repository.ChatRepository
	Users users.UserDirectory
	Log   logrus.FieldLogger
}

func NewGetConversationUseCase(repo repository.ChatRepository, dir users.UserDirectory, log logrus.FieldLogger) *GetConversationUseCase {
	return &GetConversationUseCase{Repo: repo, Users: dir, Log: log}
}

func (uc *GetConversationUseCase) Execute(ctx context.Context, in GetConversationInput) (*GetConversationOutput, error) {
	agg, err := loadChat(ctx, uc.Repo, in.ConversationID, in.UserID)
	if err != nil {
		return nil, err
	}
	other := agg.Recipient(in.UserID)
	profiles := resolveProfiles(ctx, uc.Users, uc.Log, other)
	return &GetConversationOutput{Conversation: agg.Conversation, Other: profiles[other]}, nil
}
