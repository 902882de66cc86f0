package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	apperrors "marketplace-chat/pkg/errors"
)

type ArchiveConversationInput struct {
	ConversationID string
	UserID         string
}

// ArchiveConversationUseCase moves a conversation to ARCHIVED on behalf of
// a participant. Archiving twice returns the conversation unchanged.
type ArchiveConversationUseCase struct {
	Repo repository.ChatRepository
	Log  logrus.FieldLogger
	Now  func() time.Time
}

func NewArchiveConversationUseCase(repo repository.ChatRepository, log logrus.FieldLogger) *ArchiveConversationUseCase {
	return &ArchiveConversationUseCase{Repo: repo, Log: log, Now: time.Now}
}

func (uc *ArchiveConversationUseCase) Execute(ctx context.Context, in ArchiveConversationInput) (*chat.Conversation, error) {
	agg, err := loadChat(ctx, uc.Repo, in.ConversationID, in.UserID)
	if err != nil {
		return nil, err
	}
	if agg.Conversation.Status != chat.ConversationActive {
		return &agg.Conversation, nil
	}

	c, err := uc.Repo.ArchiveConversation(ctx, in.ConversationID, in.UserID, uc.Now().UTC().Truncate(time.Microsecond))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrConversationNotFound
	}
	if err != nil {
		return nil, persistence(err)
	}
	uc.Log.WithFields(logrus.Fields{
		"function":        "ArchiveConversation",
		"conversation_id": c.ID,
		"user_id":         in.UserID,
	}).Info("conversation archived")
	return c, nil
}
