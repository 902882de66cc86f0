package port

import "context"

// Notification is a push message addressed to one user's devices.
type Notification struct {
	UserID         string            `json:"userId"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	ConversationID string            `json:"conversationId,omitempty"`
	MessageID      string            `json:"messageId,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
}

// Sender is the external push-notification collaborator.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}
