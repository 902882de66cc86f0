package chat

import "time"

// ConversationStatus is the archival state of a conversation. Conversations
// are never deleted; they only move between these states.
type ConversationStatus string

const (
	ConversationActive       ConversationStatus = "ACTIVE"
	ConversationArchived     ConversationStatus = "ARCHIVED"
	ConversationAutoArchived ConversationStatus = "AUTO_ARCHIVED"
)

func (s ConversationStatus) Valid() bool {
	switch s {
	case ConversationActive, ConversationArchived, ConversationAutoArchived:
		return true
	}
	return false
}

// Conversation is a two-party thread. UserA < UserB always holds so the
// pair plus OriginLink forms a stable unique key.
type Conversation struct {
	ID            string             `db:"id"`
	UserA         string             `db:"user_a"`
	UserB         string             `db:"user_b"`
	OriginLink    string             `db:"origin_link"`
	Status        ConversationStatus `db:"status"`
	CreatedAt     time.Time          `db:"created_at"`
	LastMessageAt *time.Time         `db:"last_message_at"`
	ArchivedAt    *time.Time         `db:"archived_at"`
	ArchivedBy    *string            `db:"archived_by"`
}

// NormalizePair orders two user ids so (a, b) and (b, a) map to the same key.
func NormalizePair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func (c *Conversation) HasParticipant(userID string) bool {
	return c != nil && userID != "" && (c.UserA == userID || c.UserB == userID)
}

// OtherParticipant returns the counterpart of userID, or "" when userID is
// not part of the conversation.
func (c *Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.UserA:
		return c.UserB
	case c.UserB:
		return c.UserA
	}
	return ""
}

// ActivityAt is the instant used by inactivity archival: the last message,
// or creation when nothing was ever sent.
func (c *Conversation) ActivityAt() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}
