package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	qport "marketplace-chat/internal/infrastructure/queue/port"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
)

// IndexMessageTaskType is the queue task name for refreshing a message's
// full-text search vector.
const IndexMessageTaskType = "chat:index_message"

type IndexMessagePayload struct {
	MessageID string `json:"messageId"`
}

// RegisterIndexMessageTask binds the indexing handler to the server.
func RegisterIndexMessageTask(srv qport.Server, repo repository.ChatRepository) {
	srv.Register(IndexMessageTaskType, func(ctx context.Context, t qport.Task) error {
		var p IndexMessagePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %v: %w", IndexMessageTaskType, err, qport.ErrSkipRetry)
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		err := repo.IndexMessage(ctx, p.MessageID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("message %s: %v: %w", p.MessageID, err, qport.ErrSkipRetry)
		}
		return err
	})
}
