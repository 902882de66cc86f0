package chat

import (
	"time"

	apperrors "marketplace-chat/pkg/errors"
)

var ErrConversationArchived = apperrors.Validation("conversation is archived")

// Chat is the domain aggregate for a conversation and its invariants.
//
// The application layer hydrates it with the stored conversation before
// invoking its behaviors; persistence stays outside the domain.
type Chat struct {
	Conversation Conversation
}

// HasParticipant tells whether userID is part of this chat.
func (c *Chat) HasParticipant(userID string) bool {
	if c == nil {
		return false
	}
	return c.Conversation.HasParticipant(userID)
}

// Recipient returns the participant that is not senderID.
func (c *Chat) Recipient(senderID string) string {
	return c.Conversation.OtherParticipant(senderID)
}

// PostMessage applies domain rules and returns a validated message ready
// to persist.
//
// Validations:
// - Sender must be a participant
// - Conversation must be ACTIVE
// - Content rules per message type (see NewMessage)
//
// On success the message is stamped with now and the in-memory
// LastMessageAt is advanced.
func (c *Chat) PostMessage(m Message, now time.Time) (*Message, error) {
	if !c.HasParticipant(m.SenderID) {
		return nil, apperrors.ErrNotParticipant
	}
	if c.Conversation.Status != ConversationActive {
		return nil, ErrConversationArchived
	}

	if now.IsZero() {
		now = time.Now()
	}
	m.ConversationID = c.Conversation.ID
	// Microsecond precision matches the store so cursors round-trip.
	m.CreatedAt = now.UTC().Truncate(time.Microsecond)

	msg, err := NewMessage(m)
	if err != nil {
		return nil, err
	}

	ts := msg.CreatedAt
	c.Conversation.LastMessageAt = &ts
	return msg, nil
}

// MarkReadBy applies the read-receipt rule for a single message: only the
// non-sender participant may set ReadAt, and only the first call sets it.
// It reports whether ReadAt changed.
func (c *Chat) MarkReadBy(m *Message, readerID string, now time.Time) (bool, error) {
	if !c.HasParticipant(readerID) {
		return false, apperrors.ErrNotParticipant
	}
	if m.ConversationID != c.Conversation.ID {
		return false, apperrors.ErrMessageNotFound
	}
	if m.SenderID == readerID {
		return false, apperrors.ErrOwnMessageRead
	}
	if m.ReadAt != nil {
		return false, nil
	}
	ts := now.UTC()
	m.ReadAt = &ts
	return true, nil
}
