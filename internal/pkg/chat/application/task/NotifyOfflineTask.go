package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	push "marketplace-chat/internal/infrastructure/push/port"
	qport "marketplace-chat/internal/infrastructure/queue/port"
)

// NotifyOfflineTaskType is the queue task name for pushing a message to a
// recipient with no live connection.
const NotifyOfflineTaskType = "chat:notify_offline"

// NotifyOfflinePayload is the JSON payload transported via the queue.
type NotifyOfflinePayload struct {
	RecipientID    string `json:"recipientId"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Preview        string `json:"preview"`
}

// RegisterNotifyOfflineTask binds the push delivery handler to the server.
func RegisterNotifyOfflineTask(srv qport.Server, sender push.Sender, log logrus.FieldLogger) {
	srv.Register(NotifyOfflineTaskType, func(ctx context.Context, t qport.Task) error {
		var p NotifyOfflinePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %v: %w", NotifyOfflineTaskType, err, qport.ErrSkipRetry)
		}
		if p.RecipientID == "" || p.MessageID == "" {
			return fmt.Errorf("%s: recipient and message are required: %w", NotifyOfflineTaskType, qport.ErrSkipRetry)
		}

		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		err := sender.Send(ctx, push.Notification{
			UserID:         p.RecipientID,
			Title:          p.SenderName,
			Body:           p.Preview,
			ConversationID: p.ConversationID,
			MessageID:      p.MessageID,
			Data: map[string]string{
				"type":     "message_received",
				"senderId": p.SenderID,
			},
		})
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"function":   "NotifyOffline",
			"user_id":    p.RecipientID,
			"message_id": p.MessageID,
		}).Debug("offline notification delivered")
		return nil
	})
}
