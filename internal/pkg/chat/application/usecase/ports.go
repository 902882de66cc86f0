package usecase

//go:generate mockgen -source=ports.go -destination=mocks/ports_mock.go -package=mocks
//go:generate mockgen -destination=mocks/storage_mock.go -package=mocks marketplace-chat/internal/infrastructure/storage/port ObjectStore

import (
	"context"

	"marketplace-chat/internal/pkg/chat/application/presence"
)

// PresenceReader is the slice of the presence tracker the use cases need.
type PresenceReader interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
	BulkPresence(ctx context.Context, userIDs []string) (map[string]presence.Record, error)
}

// OfflineNotice is what the notifier needs to build a push for a message
// the recipient could not receive live.
type OfflineNotice struct {
	RecipientID    string `json:"recipientId"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Preview        string `json:"preview"`
}

// Notifier hands offline notices to the push pipeline.
type Notifier interface {
	NotifyOfflineMessage(ctx context.Context, n OfflineNotice) error
}

// SearchIndexer schedules a message for full-text indexing.
type SearchIndexer interface {
	IndexMessage(ctx context.Context, messageID string) error
}
