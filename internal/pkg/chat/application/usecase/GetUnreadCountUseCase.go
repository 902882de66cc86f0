package usecase

import (
	"context"

	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	apperrors "marketplace-chat/pkg/errors"
)

type GetUnreadCountInput struct {
	UserID string
}

// UnreadCount is addressed-to-user unread messages over ACTIVE conversations.
type UnreadCount struct {
	Total          int            `json:"total"`
	ByConversation map[string]int `json:"byConversation"`
}

type GetUnreadCountUseCase struct {
	Repo repository.ChatRepository
}

func NewGetUnreadCountUseCase(repo repository.ChatRepository) *GetUnreadCountUseCase {
	return &GetUnreadCountUseCase{Repo: repo}
}

func (uc *GetUnreadCountUseCase) Execute(ctx context.Context, in GetUnreadCountInput) (*UnreadCount, error) {
	if in.UserID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	counts, err := uc.Repo.UnreadCounts(ctx, in.UserID)
	if err != nil {
		return nil, persistence(err)
	}
	out := &UnreadCount{ByConversation: counts}
	for _, n := range counts {
		out.Total += n
	}
	return out, nil
}
