package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	qport "marketplace-chat/internal/infrastructure/queue/port"
	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// QueueChat carries the per-message side effects.
const QueueChat = "chat"

// Enqueuer turns use case side effects into queue tasks so the send path
// only pays for one Redis round trip per effect.
type Enqueuer struct {
	client qport.Client
}

func NewEnqueuer(client qport.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

var (
	_ usecase.Notifier      = (*Enqueuer)(nil)
	_ usecase.SearchIndexer = (*Enqueuer)(nil)
)

func (e *Enqueuer) NotifyOfflineMessage(ctx context.Context, n usecase.OfflineNotice) error {
	payload, err := json.Marshal(NotifyOfflinePayload(n))
	if err != nil {
		return err
	}
	_, err = e.client.Enqueue(ctx, qport.Task{Type: NotifyOfflineTaskType, Payload: payload}, qport.EnqueueOption{
		Queue:    QueueChat,
		MaxRetry: 5,
		Deadline: time.Now().Add(10 * time.Minute),
	})
	return err
}

func (e *Enqueuer) IndexMessage(ctx context.Context, messageID string) error {
	payload, err := json.Marshal(IndexMessagePayload{MessageID: messageID})
	if err != nil {
		return err
	}
	_, err = e.client.Enqueue(ctx, qport.Task{Type: IndexMessageTaskType, Payload: payload}, qport.EnqueueOption{
		Queue:     QueueChat,
		MaxRetry:  10,
		UniqueTTL: time.Minute,
	})
	if errors.Is(err, qport.ErrDuplicate) {
		return nil
	}
	return err
}
