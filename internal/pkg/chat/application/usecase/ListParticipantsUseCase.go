package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	"marketplace-chat/internal/pkg/chat/application/presence"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	users "marketplace-chat/internal/repository/port"
)

// ListParticipantsInput wraps the conversation identifier to fetch its participants.
type ListParticipantsInput struct {
	ConversationID string
	UserID         string
}

type Participant struct {
	Profile  chat.Profile    `json:"profile"`
	Presence presence.Record `json:"presence"`
}

// ListParticipantsUseCase returns both participants with their profile and
// live presence. Presence failures degrade to OFFLINE.
type ListParticipantsUseCase struct {
	Repo     repository.ChatRepository
	Users    users.UserDirectory
	Presence PresenceReader
	Log      logrus.FieldLogger
}

func NewListParticipantsUseCase(repo repository.ChatRepository, dir users.UserDirectory, p PresenceReader, log logrus.FieldLogger) *ListParticipantsUseCase {
	return &ListParticipantsUseCase{Repo: repo, Users: dir, Presence: p, Log: log}
}

func (uc *ListParticipantsUseCase) Execute(ctx context.Context, in ListParticipantsInput) ([]Participant, error) {
	agg, err := loadChat(ctx, uc.Repo, in.ConversationID, in.UserID)
	if err != nil {
		return nil, err
	}
	ids := []string{agg.Conversation.UserA, agg.Conversation.UserB}
	profiles := resolveProfiles(ctx, uc.Users, uc.Log, ids...)

	records, err := uc.Presence.BulkPresence(ctx, ids)
	if err != nil {
		uc.Log.WithFields(logrus.Fields{"function": "ListParticipants", "conversation_id": in.ConversationID}).WithError(err).Warn("presence lookup failed")
		records = nil
	}

	out := make([]Participant, 0, len(ids))
	for _, id := range ids {
		rec, ok := records[id]
		if !ok {
			rec = presence.Record{UserID: id, Status: presence.StatusOffline}
		}
		out = append(out, Participant{Profile: profiles[id], Presence: rec})
	}
	return out, nil
}
