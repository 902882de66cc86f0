package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	"marketplace-chat/internal/pkg/chat/application/presence"
	"marketplace-chat/internal/pkg/chat/application/usecase"
	"marketplace-chat/internal/pkg/chat/application/usecase/mocks"
	apperrors "marketplace-chat/pkg/errors"
)

func TestCreateConversation(t *testing.T) {
	f := newFixture(t)
	uc := usecase.NewCreateConversationUseCase(f.repo, f.users, f.users, discard)
	uc.Now = f.clock.Now

	t.Run("returns the existing conversation for the same pair", func(t *testing.T) {
		out, err := uc.Execute(f.ctx, usecase.CreateConversationInput{RequesterID: f.bob, OtherUserID: f.alice})
		require.NoError(t, err)
		assert.False(t, out.Created)
		assert.Equal(t, f.convID, out.Conversation.ID)
		assert.Equal(t, "Alice", out.Other.DisplayName)
	})

	t.Run("rejects self conversations", func(t *testing.T) {
		_, err := uc.Execute(f.ctx, usecase.CreateConversationInput{RequesterID: f.alice, OtherUserID: f.alice})
		assert.ErrorIs(t, err, apperrors.ErrSelfConversation)
	})

	t.Run("requires authentication", func(t *testing.T) {
		_, err := uc.Execute(f.ctx, usecase.CreateConversationInput{OtherUserID: f.alice})
		assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))
	})

	t.Run("origin link must name both parties", func(t *testing.T) {
		appID := uuid.NewString()
		f.users.PutApplication(appID, f.alice, f.bob)

		out, err := uc.Execute(f.ctx, usecase.CreateConversationInput{RequesterID: f.bob, OtherUserID: f.alice, OriginLink: appID})
		require.NoError(t, err)
		assert.True(t, out.Created)
		assert.NotEqual(t, f.convID, out.Conversation.ID)
		assert.Equal(t, appID, out.Conversation.OriginLink)

		_, err = uc.Execute(f.ctx, usecase.CreateConversationInput{RequesterID: f.mallory, OtherUserID: f.alice, OriginLink: appID})
		assert.ErrorIs(t, err, apperrors.ErrOriginLinkForbidden)

		_, err = uc.Execute(f.ctx, usecase.CreateConversationInput{RequesterID: f.bob, OtherUserID: f.alice, OriginLink: uuid.NewString()})
		assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)
	})

	t.Run("unknown users get a placeholder profile", func(t *testing.T) {
		out, err := uc.Execute(f.ctx, usecase.CreateConversationInput{RequesterID: f.alice, OtherUserID: f.mallory})
		require.NoError(t, err)
		assert.True(t, out.Created)
		assert.Equal(t, chat.UnknownProfile(f.mallory), out.Other)
	})
}

func TestListConversations(t *testing.T) {
	f := newFixture(t)
	f.postText(t, f.bob, "first")
	f.postText(t, f.bob, "second")

	uc := usecase.NewListConversationsUseCase(f.repo, f.users, discard)

	out, err := uc.Execute(f.ctx, usecase.ListConversationsInput{UserID: f.alice})
	require.NoError(t, err)
	require.Len(t, out.Conversations, 1)
	row := out.Conversations[0]
	assert.Equal(t, "Bob", row.Other.DisplayName)
	assert.Equal(t, 2, row.UnreadCount)
	require.NotNil(t, row.LastMessage)
	assert.Equal(t, "second", *row.LastMessage.Content)
	assert.False(t, out.HasMore)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 20, out.Limit)

	out, err = uc.Execute(f.ctx, usecase.ListConversationsInput{UserID: f.alice, Status: chat.ConversationArchived})
	require.NoError(t, err)
	assert.Empty(t, out.Conversations)

	_, err = uc.Execute(f.ctx, usecase.ListConversationsInput{UserID: f.alice, Limit: 101})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = uc.Execute(f.ctx, usecase.ListConversationsInput{UserID: f.alice, Status: "DELETED"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestListConversations_HasMore(t *testing.T) {
	f := newFixture(t)
	create := usecase.NewCreateConversationUseCase(f.repo, f.users, f.users, discard)
	create.Now = f.clock.Now
	_, err := create.Execute(f.ctx, usecase.CreateConversationInput{RequesterID: f.alice, OtherUserID: f.mallory})
	require.NoError(t, err)

	uc := usecase.NewListConversationsUseCase(f.repo, f.users, discard)
	out, err := uc.Execute(f.ctx, usecase.ListConversationsInput{UserID: f.alice, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, out.Conversations, 1)
	assert.True(t, out.HasMore)

	out, err = uc.Execute(f.ctx, usecase.ListConversationsInput{UserID: f.alice, Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.Len(t, out.Conversations, 1)
	assert.False(t, out.HasMore)
}

func TestGetConversation_Access(t *testing.T) {
	f := newFixture(t)
	uc := usecase.NewGetConversationUseCase(f.repo, f.users, discard)

	out, err := uc.Execute(f.ctx, usecase.GetConversationInput{ConversationID: f.convID, UserID: f.alice})
	require.NoError(t, err)
	assert.Equal(t, f.bob, out.Other.UserID)

	_, err = uc.Execute(f.ctx, usecase.GetConversationInput{ConversationID: f.convID, UserID: f.mallory})
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	_, err = uc.Execute(f.ctx, usecase.GetConversationInput{ConversationID: uuid.NewString(), UserID: f.alice})
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
}

func TestArchiveConversation_Idempotent(t *testing.T) {
	f := newFixture(t)
	uc := usecase.NewArchiveConversationUseCase(f.repo, discard)
	uc.Now = f.clock.Now

	first, err := uc.Execute(f.ctx, usecase.ArchiveConversationInput{ConversationID: f.convID, UserID: f.alice})
	require.NoError(t, err)
	assert.Equal(t, chat.ConversationArchived, first.Status)
	require.NotNil(t, first.ArchivedBy)
	assert.Equal(t, f.alice, *first.ArchivedBy)

	second, err := uc.Execute(f.ctx, usecase.ArchiveConversationInput{ConversationID: f.convID, UserID: f.bob})
	require.NoError(t, err)
	assert.Equal(t, first.ArchivedAt, second.ArchivedAt)
	assert.Equal(t, f.alice, *second.ArchivedBy)

	_, err = uc.Execute(f.ctx, usecase.ArchiveConversationInput{ConversationID: f.convID, UserID: f.mallory})
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

func TestGetUnreadCount(t *testing.T) {
	f := newFixture(t)
	f.postText(t, f.bob, "one")
	f.postText(t, f.bob, "two")
	f.postText(t, f.alice, "mine")

	uc := usecase.NewGetUnreadCountUseCase(f.repo)
	out, err := uc.Execute(f.ctx, usecase.GetUnreadCountInput{UserID: f.alice})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, 2, out.ByConversation[f.convID])

	out, err = uc.Execute(f.ctx, usecase.GetUnreadCountInput{UserID: f.bob})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
}

func TestJoinConversation(t *testing.T) {
	f := newFixture(t)
	uc := usecase.NewJoinConversationUseCase(f.repo)

	c, err := uc.Execute(f.ctx, usecase.JoinConversationInput{ConversationID: f.convID, UserID: f.bob})
	require.NoError(t, err)
	assert.Equal(t, f.convID, c.ID)

	_, err = uc.Execute(f.ctx, usecase.JoinConversationInput{ConversationID: f.convID, UserID: f.mallory})
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

func TestListParticipants(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	p := mocks.NewMockPresenceReader(ctrl)
	uc := usecase.NewListParticipantsUseCase(f.repo, f.users, p, discard)

	t.Run("attaches presence", func(t *testing.T) {
		p.EXPECT().BulkPresence(gomock.Any(), gomock.Len(2)).Return(map[string]presence.Record{
			f.bob: {UserID: f.bob, Status: presence.StatusOnline, ConnectionCount: 2},
		}, nil)

		out, err := uc.Execute(f.ctx, usecase.ListParticipantsInput{ConversationID: f.convID, UserID: f.alice})
		require.NoError(t, err)
		require.Len(t, out, 2)
		byID := map[string]usecase.Participant{}
		for _, part := range out {
			byID[part.Profile.UserID] = part
		}
		assert.Equal(t, presence.StatusOnline, byID[f.bob].Presence.Status)
		assert.Equal(t, presence.StatusOffline, byID[f.alice].Presence.Status)
		assert.Equal(t, "Alice", byID[f.alice].Profile.DisplayName)
	})

	t.Run("presence outage degrades to offline", func(t *testing.T) {
		p.EXPECT().BulkPresence(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))

		out, err := uc.Execute(context.Background(), usecase.ListParticipantsInput{ConversationID: f.convID, UserID: f.bob})
		require.NoError(t, err)
		for _, part := range out {
			assert.Equal(t, presence.StatusOffline, part.Presence.Status)
		}
	})
}
