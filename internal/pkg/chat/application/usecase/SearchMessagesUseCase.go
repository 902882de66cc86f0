package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	apperrors "marketplace-chat/pkg/errors"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
	maxQueryLength     = 200
)

// SearchMessagesInput searches one conversation when ConversationID is set,
// otherwise every conversation the user participates in.
type SearchMessagesInput struct {
	UserID         string
	Query          string
	ConversationID string
	Limit          int
}

// SearchMessagesUseCase runs full-text search ranked by relevance then recency.
type SearchMessagesUseCase struct {
	Repo repository.ChatRepository
}

func NewSearchMessagesUseCase(repo repository.ChatRepository) *SearchMessagesUseCase {
	return &SearchMessagesUseCase{Repo: repo}
}

func (uc *SearchMessagesUseCase) Execute(ctx context.Context, in SearchMessagesInput) ([]chat.Message, error) {
	if in.UserID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	q := strings.TrimSpace(in.Query)
	if q == "" {
		return nil, apperrors.ErrEmptyQuery
	}
	if utf8.RuneCountInString(q) > maxQueryLength {
		return nil, apperrors.ErrQueryTooLong
	}
	if in.ConversationID != "" {
		if _, err := loadChat(ctx, uc.Repo, in.ConversationID, in.UserID); err != nil {
			return nil, err
		}
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}

	msgs, err := uc.Repo.SearchMessages(ctx, in.UserID, in.ConversationID, q, limit)
	if err != nil {
		return nil, persistence(err)
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return msgs, nil
}
