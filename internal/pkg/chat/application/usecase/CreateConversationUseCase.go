package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	users "marketplace-chat/internal/repository/port"
	apperrors "marketplace-chat/pkg/errors"
)

// CreateConversationInput opens (or reopens) the thread between two users,
// optionally tied to the job application they met through.
type CreateConversationInput struct {
	RequesterID string
	OtherUserID string
	OriginLink  string
}

type CreateConversationOutput struct {
	Conversation chat.Conversation
	Other        chat.Profile
	// Created is false when an existing conversation was returned.
	Created bool
}

// CreateConversationUseCase is idempotent per (pair, origin link).
// One class per use case (own file)
type CreateConversationUseCase struct {
	Repo  repository.ChatRepository
	Links users.ApplicationLinks
	Users users.UserDirectory
	Log   logrus.FieldLogger
	Now   func() time.Time
}

func NewCreateConversationUseCase(repo repository.ChatRepository, links users.ApplicationLinks, dir users.UserDirectory, log logrus.FieldLogger) *CreateConversationUseCase {
	return &CreateConversationUseCase{Repo: repo, Links: links, Users: dir, Log: log, Now: time.Now}
}

func (uc *CreateConversationUseCase) Execute(ctx context.Context, in CreateConversationInput) (*CreateConversationOutput, error) {
	requester := strings.TrimSpace(in.RequesterID)
	other := strings.TrimSpace(in.OtherUserID)
	link := strings.TrimSpace(in.OriginLink)
	if requester == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	if other == "" {
		return nil, apperrors.Validation("other_user_id is required")
	}
	if requester == other {
		return nil, apperrors.ErrSelfConversation
	}

	if link != "" {
		if err := uc.checkOriginLink(ctx, link, requester, other); err != nil {
			return nil, err
		}
	}

	a, b := chat.NormalizePair(requester, other)
	conv, created, err := uc.Repo.CreateConversation(ctx, chat.Conversation{
		ID:         uuid.NewString(),
		UserA:      a,
		UserB:      b,
		OriginLink: link,
		Status:     chat.ConversationActive,
		CreatedAt:  uc.Now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		return nil, persistence(err)
	}

	if created {
		uc.Log.WithFields(logrus.Fields{
			"function":        "CreateConversation",
			"conversation_id": conv.ID,
			"origin_link":     link,
		}).Info("conversation created")
	}
	profiles := resolveProfiles(ctx, uc.Users, uc.Log, other)
	return &CreateConversationOutput{Conversation: conv, Other: profiles[other], Created: created}, nil
}

// checkOriginLink requires the requester and the other user to be exactly
// the two parties of the application.
func (uc *CreateConversationUseCase) checkOriginLink(ctx context.Context, link, requester, other string) error {
	if uc.Links == nil {
		return apperrors.ErrApplicationNotFound
	}
	applicant, employer, err := uc.Links.Parties(ctx, link)
	if errors.Is(err, users.ErrApplicationNotFound) {
		return apperrors.ErrApplicationNotFound
	}
	if err != nil {
		return persistence(err)
	}
	switch {
	case requester == applicant && other == employer:
	case requester == employer && other == applicant:
	default:
		return apperrors.ErrOriginLinkForbidden
	}
	return nil
}
