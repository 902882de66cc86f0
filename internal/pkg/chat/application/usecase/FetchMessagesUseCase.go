package usecase

import (
	"context"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
)

const (
	defaultMessagePage = 50
	maxMessagePage     = 100
)

// FetchMessagesInput carries parameters to fetch one page of history.
// Cursor is empty for the newest page.
type FetchMessagesInput struct {
	ConversationID string
	UserID         string
	Cursor         string
	Limit          int
}

// MessagePage is oldest-first. NextCursor points past the oldest message
// and is set only when HasMore.
type MessagePage struct {
	Messages   []chat.Message
	HasMore    bool
	NextCursor string
}

// FetchMessagesUseCase pages a conversation's history backwards in time.
type FetchMessagesUseCase struct {
	Repo repository.ChatRepository
}

func NewFetchMessagesUseCase(repo repository.ChatRepository) *FetchMessagesUseCase {
	return &FetchMessagesUseCase{Repo: repo}
}

func (uc *FetchMessagesUseCase) Execute(ctx context.Context, in FetchMessagesInput) (*MessagePage, error) {
	if _, err := loadChat(ctx, uc.Repo, in.ConversationID, in.UserID); err != nil {
		return nil, err
	}

	var before *repository.Cursor
	if in.Cursor != "" {
		c, err := DecodeCursor(in.Cursor)
		if err != nil {
			return nil, err
		}
		before = c
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultMessagePage
	case limit > maxMessagePage:
		limit = maxMessagePage
	}

	msgs, err := uc.Repo.ListMessages(ctx, in.ConversationID, before, limit)
	if err != nil {
		return nil, persistence(err)
	}

	page := &MessagePage{Messages: make([]chat.Message, len(msgs))}
	for i, m := range msgs {
		page.Messages[len(msgs)-1-i] = m
	}
	if len(msgs) == limit {
		oldest := msgs[len(msgs)-1]
		page.HasMore = true
		page.NextCursor = EncodeCursor(repository.Cursor{CreatedAt: oldest.CreatedAt, ID: oldest.ID})
	}
	return page, nil
}
