package usecase

import (
	"context"
	"errors"
	"time"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	apperrors "marketplace-chat/pkg/errors"
)

// MarkReadInput selects exactly one mode: a single MessageID or MarkAll.
type MarkReadInput struct {
	ConversationID string
	UserID         string
	MessageID      string
	MarkAll        bool
}

// MarkReadResult reports how many messages changed. Message is the stored
// message in single mode.
type MarkReadResult struct {
	Message *chat.Message
	Count   int64
	MarkAll bool
}

// MarkReadUseCase applies read receipts. Re-marking is a no-op with Count 0.
type MarkReadUseCase struct {
	Repo repository.ChatRepository
	Now  func() time.Time
}

func NewMarkReadUseCase(repo repository.ChatRepository) *MarkReadUseCase {
	return &MarkReadUseCase{Repo: repo, Now: time.Now}
}

func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) (*MarkReadResult, error) {
	if (in.MessageID == "") == !in.MarkAll {
		return nil, apperrors.ErrMarkReadMode
	}
	agg, err := loadChat(ctx, uc.Repo, in.ConversationID, in.UserID)
	if err != nil {
		return nil, err
	}
	now := uc.Now().UTC().Truncate(time.Microsecond)

	if in.MarkAll {
		n, err := uc.Repo.MarkAllRead(ctx, in.ConversationID, in.UserID, now)
		if err != nil {
			return nil, persistence(err)
		}
		return &MarkReadResult{Count: n, MarkAll: true}, nil
	}

	m, err := uc.Repo.GetMessage(ctx, in.MessageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return nil, persistence(err)
	}
	changed, err := agg.MarkReadBy(m, in.UserID, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &MarkReadResult{Message: m}, nil
	}

	stored, err := uc.Repo.MarkMessageRead(ctx, m.ID, *m.ReadAt)
	if err != nil {
		return nil, persistence(err)
	}
	res := &MarkReadResult{Message: stored}
	// A concurrent reader may have won; only the winner counts the change.
	if stored.ReadAt != nil && stored.ReadAt.Equal(*m.ReadAt) {
		res.Count = 1
	}
	return res, nil
}
