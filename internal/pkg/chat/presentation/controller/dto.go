package controller

import (
	"time"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	"marketplace-chat/internal/pkg/chat/application/presence"
	"marketplace-chat/internal/pkg/chat/application/usecase"
)

type messageDTO struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversationId"`
	SenderID       string            `json:"senderId"`
	Type           chat.MessageType  `json:"type"`
	Content        *string           `json:"content,omitempty"`
	AttachmentRef  *string           `json:"attachmentRef,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	ReadAt         *time.Time        `json:"readAt"`
}

func toMessageDTO(m chat.Message) messageDTO {
	return messageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Type:           m.Type,
		Content:        m.Content,
		AttachmentRef:  m.AttachmentRef,
		Metadata:       m.Metadata,
		CreatedAt:      m.CreatedAt,
		ReadAt:         m.ReadAt,
	}
}

func toMessageDTOs(msgs []chat.Message) []messageDTO {
	out := make([]messageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageDTO(m))
	}
	return out
}

type sentMessageDTO struct {
	Message messageDTO   `json:"message"`
	Sender  chat.Profile `json:"sender"`
}

func toSentMessageDTO(s *usecase.SentMessage) sentMessageDTO {
	return sentMessageDTO{Message: toMessageDTO(s.Message), Sender: s.Sender}
}

type conversationDTO struct {
	ID            string                  `json:"id"`
	Participants  []string                `json:"participants"`
	OriginLink    string                  `json:"originLink,omitempty"`
	Status        chat.ConversationStatus `json:"status"`
	CreatedAt     time.Time               `json:"createdAt"`
	LastMessageAt *time.Time              `json:"lastMessageAt"`
	ArchivedAt    *time.Time              `json:"archivedAt,omitempty"`
	ArchivedBy    *string                 `json:"archivedBy,omitempty"`
	Other         *chat.Profile           `json:"otherParticipant,omitempty"`
	LastMessage   *messageDTO             `json:"lastMessage,omitempty"`
	UnreadCount   *int                    `json:"unreadCount,omitempty"`
}

func toConversationDTO(c chat.Conversation) conversationDTO {
	return conversationDTO{
		ID:            c.ID,
		Participants:  []string{c.UserA, c.UserB},
		OriginLink:    c.OriginLink,
		Status:        c.Status,
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
		ArchivedAt:    c.ArchivedAt,
		ArchivedBy:    c.ArchivedBy,
	}
}

func toSummaryDTO(s usecase.ConversationSummary) conversationDTO {
	dto := toConversationDTO(s.Conversation)
	other := s.Other
	unread := s.UnreadCount
	dto.Other = &other
	dto.UnreadCount = &unread
	if s.LastMessage != nil {
		last := toMessageDTO(*s.LastMessage)
		dto.LastMessage = &last
	}
	return dto
}

type presenceDTO struct {
	UserID          string          `json:"userId"`
	Status          presence.Status `json:"status"`
	LastSeen        *time.Time      `json:"lastSeen"`
	ConnectionCount int64           `json:"connectionCount,omitempty"`
}

func toPresenceDTO(userID string, rec presence.Record, ok bool) presenceDTO {
	if !ok {
		return presenceDTO{UserID: userID, Status: presence.StatusOffline}
	}
	seen := rec.LastSeen
	return presenceDTO{UserID: userID, Status: rec.Status, LastSeen: &seen, ConnectionCount: rec.ConnectionCount}
}
