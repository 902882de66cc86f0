package chat

import (
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	apperrors "marketplace-chat/pkg/errors"
)

// MessageType represents the type of message content.
type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeImage  MessageType = "IMAGE"
	MessageTypeSystem MessageType = "SYSTEM"
)

const (
	MaxTextLength    = 5000
	MaxCaptionLength = 500

	maxMetadataEntries = 20
	maxMetadataKey     = 64
	maxMetadataValue   = 500
)

// Message is an immutable log entry in a conversation; only ReadAt changes
// after creation, and only once.
type Message struct {
	ID             string            `db:"id"`
	ConversationID string            `db:"conversation_id"`
	SenderID       string            `db:"sender_id"`
	Type           MessageType       `db:"type"`
	Content        *string           `db:"content"`
	AttachmentRef  *string           `db:"attachment_ref"`
	Metadata       map[string]string `db:"metadata"`
	CreatedAt      time.Time         `db:"created_at"`
	ReadAt         *time.Time        `db:"read_at"`
	IsArchived     bool              `db:"is_archived"`
}

// MessageImage is the retention record of an uploaded image attachment.
type MessageImage struct {
	ID          string    `db:"id"`
	MessageID   string    `db:"message_id"`
	StorageKey  string    `db:"storage_key"`
	Width       int       `db:"width"`
	Height      int       `db:"height"`
	CreatedAt   time.Time `db:"created_at"`
	DeleteAfter time.Time `db:"delete_after"`
}

var sanitizer = bluemonday.StrictPolicy()

// maxSanitizePasses bounds how many entity-encoding layers are peeled off.
const maxSanitizePasses = 8

// SanitizeContent strips all markup and keeps only text. Entities escaped
// by the policy are decoded again since clients render plain text, so the
// strip/decode pair is repeated until the output is stable; otherwise
// entity-encoded markup would come back out as live tags.
func SanitizeContent(s string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(sanitizer.Sanitize(s))
		if next == s {
			return strings.TrimSpace(next)
		}
		s = next
	}
	// Still changing: keep the policy's escaped form.
	return strings.TrimSpace(sanitizer.Sanitize(s))
}

// NewMessageID returns a time-ordered id (UUIDv7) so id order follows
// creation order.
func NewMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewMessage validates client-supplied content per type and returns a
// sanitized message ready to persist. SYSTEM messages are rejected here;
// they are only produced internally.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" || m.SenderID == "" {
		return nil, apperrors.Validation("conversation_id and sender_id are required")
	}

	var content string
	if m.Content != nil {
		content = SanitizeContent(*m.Content)
	}

	switch m.Type {
	case MessageTypeText:
		if content == "" {
			return nil, apperrors.ErrEmptyContent
		}
		if utf8.RuneCountInString(content) > MaxTextLength {
			return nil, apperrors.ErrContentTooLong
		}
		m.AttachmentRef = nil
	case MessageTypeImage:
		if m.AttachmentRef == nil || strings.TrimSpace(*m.AttachmentRef) == "" {
			return nil, apperrors.ErrAttachmentRequired
		}
		if utf8.RuneCountInString(content) > MaxCaptionLength {
			return nil, apperrors.ErrCaptionTooLong
		}
	default:
		return nil, apperrors.ErrInvalidMessageType
	}

	if err := validateMetadata(m.Metadata); err != nil {
		return nil, err
	}

	if content == "" {
		m.Content = nil
	} else {
		m.Content = &content
	}
	if m.ID == "" {
		m.ID = NewMessageID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.ReadAt = nil
	m.IsArchived = false
	return &m, nil
}

func validateMetadata(md map[string]string) error {
	if len(md) > maxMetadataEntries {
		return apperrors.ErrMetadataInvalid
	}
	for k, v := range md {
		if k == "" || utf8.RuneCountInString(k) > maxMetadataKey || utf8.RuneCountInString(v) > maxMetadataValue {
			return apperrors.ErrMetadataInvalid
		}
	}
	return nil
}

// Preview returns a short text used in conversation listings and push payloads.
func (m *Message) Preview(max int) string {
	if m == nil {
		return ""
	}
	if m.Content == nil {
		if m.Type == MessageTypeImage {
			return "[image]"
		}
		return ""
	}
	r := []rune(*m.Content)
	if len(r) <= max {
		return *m.Content
	}
	return string(r[:max]) + "…"
}
