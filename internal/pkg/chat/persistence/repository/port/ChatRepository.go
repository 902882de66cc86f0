package repository

import (
	"context"
	"errors"
	"time"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
)

// ErrNotFound is returned by adapters when an id does not resolve.
var ErrNotFound = errors.New("repository: not found")

// Cursor addresses "older than this message" in a conversation's history.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// ImageCursor addresses "after this image" in delete_after, id order.
type ImageCursor struct {
	DeleteAfter time.Time
	ID          string
}

// ConversationSummary is a listing row: the conversation, its latest
// message and the number of messages from the other participant that the
// listing user has not read.
type ConversationSummary struct {
	Conversation chat.Conversation
	LastMessage  *chat.Message
	UnreadCount  int
}

// ChatRepository defines persistence operations for the chat domain.
// It is the system of record for conversations, messages and images.
type ChatRepository interface {
	// CreateConversation inserts c unless a conversation with the same
	// (UserA, UserB, OriginLink) exists, in which case the existing row is
	// returned with created=false. It must be safe under concurrent calls.
	CreateConversation(ctx context.Context, c chat.Conversation) (conv chat.Conversation, created bool, err error)
	GetConversation(ctx context.Context, id string) (*chat.Conversation, error)
	ListConversations(ctx context.Context, userID string, status chat.ConversationStatus, limit, offset int) ([]ConversationSummary, error)
	// ArchiveConversation moves an ACTIVE conversation to ARCHIVED and flags
	// its messages. Already archived conversations are returned unchanged.
	ArchiveConversation(ctx context.Context, id, userID string, at time.Time) (*chat.Conversation, error)
	// UnreadCounts returns, per ACTIVE conversation of userID, the number of
	// unread messages sent by the other participant. Zero counts are omitted.
	UnreadCounts(ctx context.Context, userID string) (map[string]int, error)

	// SaveMessage persists m and advances the conversation's LastMessageAt
	// in the same transaction.
	SaveMessage(ctx context.Context, m chat.Message) error
	GetMessage(ctx context.Context, id string) (*chat.Message, error)
	// ListMessages returns up to limit non-archived messages older than
	// before (all when nil), newest first.
	ListMessages(ctx context.Context, conversationID string, before *Cursor, limit int) ([]chat.Message, error)
	// MarkMessageRead sets ReadAt when unset and returns the stored message.
	MarkMessageRead(ctx context.Context, messageID string, at time.Time) (*chat.Message, error)
	// MarkAllRead sets ReadAt on every unread message in the conversation
	// not sent by readerID and returns how many changed.
	MarkAllRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
	// SearchMessages runs a full-text query over non-archived messages of
	// conversations userID participates in, optionally narrowed to one.
	SearchMessages(ctx context.Context, userID, conversationID, query string, limit int) ([]chat.Message, error)
	// IndexMessage refreshes the search document of a message.
	IndexMessage(ctx context.Context, messageID string) error

	// SaveImageMessage persists an IMAGE message and its retention record atomically.
	SaveImageMessage(ctx context.Context, m chat.Message, img chat.MessageImage) error
	GetImageByMessage(ctx context.Context, messageID string) (*chat.MessageImage, error)
	DeleteImage(ctx context.Context, imageID string) error
	// ListExpiredImages returns images with DeleteAfter <= now, ordered by
	// (DeleteAfter, ID), strictly after the cursor when one is given.
	ListExpiredImages(ctx context.Context, now time.Time, after *ImageCursor, limit int) ([]chat.MessageImage, error)

	// ArchiveInactive moves at most limit ACTIVE conversations whose last
	// activity is before cutoff to AUTO_ARCHIVED and returns how many moved.
	ArchiveInactive(ctx context.Context, cutoff time.Time, limit int, at time.Time) (int64, error)
}
