package controller

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/realtime"
	"marketplace-chat/internal/pkg/chat/application/usecase"
)

// Server to client event types.
const (
	EventAck             = "ack"
	EventError           = "error"
	EventMessageSent     = "message_sent"
	EventMessageReceived = "message_received"
	EventMessageRead     = "message_read"
	EventUserTyping      = "user_typing"
	EventUserOnline      = "user_online"
	EventUserOffline     = "user_offline"
	EventUnreadCount     = "unread_count"
	EventPresenceData    = "presence_data"
)

type eventFrame struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

type ackFrame struct {
	Type      string     `json:"type"`
	RequestID string     `json:"request_id,omitempty"`
	Intent    string     `json:"intent"`
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *errorBody `json:"error,omitempty"`
}

type errorFrame struct {
	Type      string     `json:"type"`
	RequestID string     `json:"request_id,omitempty"`
	Error     *errorBody `json:"error"`
}

type typingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

type presenceEvent struct {
	UserID   string    `json:"userId"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}

type readEvent struct {
	ConversationID string      `json:"conversationId"`
	ReaderID       string      `json:"readerId"`
	MessageID      string      `json:"messageId,omitempty"`
	MarkAll        bool        `json:"markAll"`
	Count          int64       `json:"count"`
	ReadAt         time.Time   `json:"readAt"`
	Message        *messageDTO `json:"message,omitempty"`
}

func encodeEvent(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every frame type here is plain data; this cannot fail in practice.
		return []byte(`{"type":"error","error":{"kind":"INTERNAL","message":"encode failure"}}`)
	}
	return b
}

// Publisher fans domain outcomes out to the connections held by this process.
// It is shared by the realtime gateway and REST controllers so a message sent
// over REST still reaches live rooms.
type Publisher struct {
	router *realtime.Router
	unread *usecase.GetUnreadCountUseCase
	log    logrus.FieldLogger
}

func NewPublisher(router *realtime.Router, unread *usecase.GetUnreadCountUseCase, log logrus.FieldLogger) *Publisher {
	return &Publisher{router: router, unread: unread, log: log}
}

// MessageSent acknowledges to the originating connection (nil for REST) and
// delivers message_received to every other connection in the room.
func (p *Publisher) MessageSent(ctx context.Context, sent *usecase.SentMessage, origin *realtime.Connection) {
	dto := toSentMessageDTO(sent)
	exclude := ""
	if origin != nil {
		exclude = origin.ID
		_ = origin.Send(encodeEvent(eventFrame{Type: EventMessageSent, Data: dto}))
	}
	delivered := p.router.Broadcast(sent.Message.ConversationID, encodeEvent(eventFrame{Type: EventMessageReceived, Data: dto}), exclude)
	p.log.WithFields(logrus.Fields{
		"function":        "MessageSent",
		"conversation_id": sent.Message.ConversationID,
		"message_id":      sent.Message.ID,
		"delivered":       delivered,
	}).Debug("message fanned out")

	p.PushUnread(ctx, sent.RecipientID)
}

// MessagesRead broadcasts the receipt to the whole room and refreshes the
// reader's unread badge.
func (p *Publisher) MessagesRead(ctx context.Context, conversationID, readerID string, res *usecase.MarkReadResult, at time.Time) {
	ev := readEvent{
		ConversationID: conversationID,
		ReaderID:       readerID,
		MarkAll:        res.MarkAll,
		Count:          res.Count,
		ReadAt:         at,
	}
	if res.Message != nil {
		m := toMessageDTO(*res.Message)
		ev.Message = &m
		ev.MessageID = m.ID
		if m.ReadAt != nil {
			ev.ReadAt = *m.ReadAt
		}
	}
	p.router.Broadcast(conversationID, encodeEvent(eventFrame{Type: EventMessageRead, Data: ev}), "")
	p.PushUnread(ctx, readerID)
}

// PushUnread sends the current unread_count to every local connection of
// userID. Users without local connections are skipped.
func (p *Publisher) PushUnread(ctx context.Context, userID string) {
	if userID == "" || p.router.UserConnections(userID) == 0 {
		return
	}
	count, err := p.unread.Execute(ctx, usecase.GetUnreadCountInput{UserID: userID})
	if err != nil {
		p.log.WithFields(logrus.Fields{"function": "PushUnread", "user_id": userID}).WithError(err).Warn("unread count refresh failed")
		return
	}
	p.router.SendToUser(userID, encodeEvent(eventFrame{Type: EventUnreadCount, Data: count}), "")
}
