package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	users "marketplace-chat/internal/repository/port"
	apperrors "marketplace-chat/pkg/errors"
)

const (
	defaultConversationPage = 20
	maxConversationPage     = 100
)

type ListConversationsInput struct {
	UserID string
	Status chat.ConversationStatus
	Page   int
	Limit  int
}

// ConversationSummary is one listing row annotated for rendering.
type ConversationSummary struct {
	Conversation chat.Conversation
	Other        chat.Profile
	LastMessage  *chat.Message
	UnreadCount  int
}

type ListConversationsOutput struct {
	Conversations []ConversationSummary
	Page          int
	Limit         int
	HasMore       bool
}

// ListConversationsUseCase pages a user's conversations, most recently
// active first.
type ListConversationsUseCase struct {
	Repo  repository.ChatRepository
	Users users.UserDirectory
	Log   logrus.FieldLogger
}

func NewListConversationsUseCase(repo repository.ChatRepository, dir users.UserDirectory, log logrus.FieldLogger) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Users: dir, Log: log}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) (*ListConversationsOutput, error) {
	if in.UserID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	status := in.Status
	if status == "" {
		status = chat.ConversationActive
	}
	if !status.Valid() {
		return nil, apperrors.Validationf("unknown status %q", string(status))
	}
	page := in.Page
	if page <= 0 {
		page = 1
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultConversationPage
	case limit > maxConversationPage:
		return nil, apperrors.Validationf("limit must be at most %d", maxConversationPage)
	}

	// One extra row tells whether another page exists.
	rows, err := uc.Repo.ListConversations(ctx, in.UserID, status, limit+1, (page-1)*limit)
	if err != nil {
		return nil, persistence(err)
	}
	out := &ListConversationsOutput{Page: page, Limit: limit, Conversations: []ConversationSummary{}}
	if len(rows) > limit {
		out.HasMore = true
		rows = rows[:limit]
	}

	others := make([]string, 0, len(rows))
	for _, r := range rows {
		others = append(others, r.Conversation.OtherParticipant(in.UserID))
	}
	profiles := resolveProfiles(ctx, uc.Users, uc.Log, others...)
	for i, r := range rows {
		out.Conversations = append(out.Conversations, ConversationSummary{
			Conversation: r.Conversation,
			Other:        profiles[others[i]],
			LastMessage:  r.LastMessage,
			UnreadCount:  r.UnreadCount,
		})
	}
	return out, nil
}
