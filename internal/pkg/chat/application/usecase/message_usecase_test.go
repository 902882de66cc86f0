package usecase_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "marketplace-chat/internal/infrastructure/storage/port"
	chat "marketplace-chat/internal/pkg/chat/application/domain"
	"marketplace-chat/internal/pkg/chat/application/usecase"
	"marketplace-chat/internal/pkg/chat/application/usecase/mocks"
	apperrors "marketplace-chat/pkg/errors"
)

type sendDeps struct {
	presence *mocks.MockPresenceReader
	notifier *mocks.MockNotifier
	indexer  *mocks.MockSearchIndexer
	store    *mocks.MockObjectStore
}

func newSendUseCase(t *testing.T, f *fixture) (*usecase.SendMessageUseCase, sendDeps) {
	ctrl := gomock.NewController(t)
	d := sendDeps{
		presence: mocks.NewMockPresenceReader(ctrl),
		notifier: mocks.NewMockNotifier(ctrl),
		indexer:  mocks.NewMockSearchIndexer(ctrl),
		store:    mocks.NewMockObjectStore(ctrl),
	}
	uc := usecase.NewSendMessageUseCase(f.repo, f.users, d.presence, d.notifier, d.indexer, d.store, discard)
	uc.Now = f.clock.Now
	return uc, d
}

func TestSendMessage_TextToOfflineRecipient(t *testing.T) {
	f := newFixture(t)
	uc, d := newSendUseCase(t, f)

	d.indexer.EXPECT().IndexMessage(gomock.Any(), gomock.Any()).Return(nil)
	d.presence.EXPECT().IsOnline(gomock.Any(), f.bob).Return(false, nil)
	var notice usecase.OfflineNotice
	d.notifier.EXPECT().NotifyOfflineMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, n usecase.OfflineNotice) error {
			notice = n
			return nil
		})

	out, err := uc.Execute(f.ctx, usecase.SendMessageInput{
		ConversationID: f.convID,
		SenderID:       f.alice,
		Content:        strPtr("  <b>Hi</b> Bob  "),
	})
	require.NoError(t, err)
	assert.Equal(t, chat.MessageTypeText, out.Message.Type)
	assert.Equal(t, "Hi Bob", *out.Message.Content)
	assert.Equal(t, f.bob, out.RecipientID)
	assert.Equal(t, "Alice", out.Sender.DisplayName)

	assert.Equal(t, f.bob, notice.RecipientID)
	assert.Equal(t, "Alice", notice.SenderName)
	assert.Equal(t, out.Message.ID, notice.MessageID)
	assert.Equal(t, "Hi Bob", notice.Preview)

	stored, err := f.repo.GetMessage(f.ctx, out.Message.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReadAt)

	conv, err := f.repo.GetConversation(f.ctx, f.convID)
	require.NoError(t, err)
	require.NotNil(t, conv.LastMessageAt)
	assert.True(t, conv.LastMessageAt.Equal(out.Message.CreatedAt))
}

func TestSendMessage_SideEffects(t *testing.T) {
	t.Run("online recipient gets no push", func(t *testing.T) {
		f := newFixture(t)
		uc, d := newSendUseCase(t, f)
		d.indexer.EXPECT().IndexMessage(gomock.Any(), gomock.Any()).Return(nil)
		d.presence.EXPECT().IsOnline(gomock.Any(), f.bob).Return(true, nil)

		_, err := uc.Execute(f.ctx, usecase.SendMessageInput{ConversationID: f.convID, SenderID: f.alice, Content: strPtr("hey")})
		require.NoError(t, err)
	})

	t.Run("push disabled recipient gets no push", func(t *testing.T) {
		f := newFixture(t)
		f.users.PutProfile(chat.Profile{UserID: f.bob, DisplayName: "Bob"}, false)
		uc, d := newSendUseCase(t, f)
		d.indexer.EXPECT().IndexMessage(gomock.Any(), gomock.Any()).Return(nil)
		d.presence.EXPECT().IsOnline(gomock.Any(), f.bob).Return(false, nil)

		_, err := uc.Execute(f.ctx, usecase.SendMessageInput{ConversationID: f.convID, SenderID: f.alice, Content: strPtr("hey")})
		require.NoError(t, err)
	})

	t.Run("side effect failures never fail the send", func(t *testing.T) {
		f := newFixture(t)
		uc, d := newSendUseCase(t, f)
		d.indexer.EXPECT().IndexMessage(gomock.Any(), gomock.Any()).Return(errors.New("queue down"))
		d.presence.EXPECT().IsOnline(gomock.Any(), f.bob).Return(false, errors.New("redis down"))
		d.notifier.EXPECT().NotifyOfflineMessage(gomock.Any(), gomock.Any()).Return(errors.New("queue down"))

		out, err := uc.Execute(f.ctx, usecase.SendMessageInput{ConversationID: f.convID, SenderID: f.alice, Content: strPtr("hey")})
		require.NoError(t, err)
		_, err = f.repo.GetMessage(f.ctx, out.Message.ID)
		assert.NoError(t, err)
	})
}

func TestSendMessage_Rejections(t *testing.T) {
	f := newFixture(t)
	uc, _ := newSendUseCase(t, f)

	cases := []struct {
		name string
		in   usecase.SendMessageInput
		want error
	}{
		{"outsider", usecase.SendMessageInput{ConversationID: f.convID, SenderID: f.mallory, Content: strPtr("x")}, apperrors.ErrNotParticipant},
		{"unknown conversation", usecase.SendMessageInput{ConversationID: uuid.NewString(), SenderID: f.alice, Content: strPtr("x")}, apperrors.ErrConversationNotFound},
		{"blank text", usecase.SendMessageInput{ConversationID: f.convID, SenderID: f.alice, Content: strPtr("   ")}, apperrors.ErrEmptyContent},
		{"too long", usecase.SendMessageInput{ConversationID: f.convID, SenderID: f.alice, Content: strPtr(strings.Repeat("a", 5001))}, apperrors.ErrContentTooLong},
		{"system", usecase.SendMessageInput{ConversationID: f.convID, SenderID: f.alice, Type: chat.MessageTypeSystem, Content: strPtr("x")}, apperrors.ErrInvalidMessageType},
		{"image without attachment", usecase.SendMessageInput{ConversationID: f.convID, SenderID: f.alice, Type: chat.MessageTypeImage}, apperrors.ErrAttachmentRequired},
		{"image from another conversation", usecase.SendMessageInput{ConversationID: f.convID, SenderID: f.alice, Type: chat.MessageTypeImage, AttachmentRef: strPtr("conversations/other/x.png")}, apperrors.ErrForeignStorageKey},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Execute(f.ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSendMessage_ArchivedConversation(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.ArchiveConversation(f.ctx, f.convID, f.alice, f.clock.Now())
	require.NoError(t, err)

	uc, _ := newSendUseCase(t, f)
	_, err = uc.Execute(f.ctx, usecase.SendMessageInput{ConversationID: f.convID, SenderID: f.bob, Content: strPtr("still there?")})
	assert.ErrorIs(t, err, chat.ErrConversationArchived)
}

func TestConfirmImageUpload(t *testing.T) {
	f := newFixture(t)
	send, d := newSendUseCase(t, f)
	uc := usecase.NewConfirmImageUploadUseCase(send)
	key := usecase.ImageKeyPrefix(f.convID) + uuid.NewString() + ".png"

	t.Run("missing object", func(t *testing.T) {
		d.store.EXPECT().Exists(gomock.Any(), key).Return(false, nil)
		_, err := uc.Execute(f.ctx, usecase.ConfirmImageUploadInput{ConversationID: f.convID, UserID: f.alice, StorageKey: key, Width: 10, Height: 10})
		assert.ErrorIs(t, err, apperrors.ErrUploadMissing)
	})

	t.Run("dimensions are required", func(t *testing.T) {
		_, err := uc.Execute(f.ctx, usecase.ConfirmImageUploadInput{ConversationID: f.convID, UserID: f.alice, StorageKey: key})
		assert.ErrorIs(t, err, apperrors.ErrImageDimensions)
	})

	t.Run("creates the message with a retention record", func(t *testing.T) {
		d.store.EXPECT().Exists(gomock.Any(), key).Return(true, nil)
		d.indexer.EXPECT().IndexMessage(gomock.Any(), gomock.Any()).Return(nil)
		d.presence.EXPECT().IsOnline(gomock.Any(), f.bob).Return(true, nil)

		out, err := uc.Execute(f.ctx, usecase.ConfirmImageUploadInput{
			ConversationID: f.convID, UserID: f.alice, StorageKey: key, Width: 640, Height: 480, Caption: strPtr("the site"),
		})
		require.NoError(t, err)
		assert.Equal(t, chat.MessageTypeImage, out.Message.Type)
		assert.Equal(t, key, *out.Message.AttachmentRef)

		img, err := f.repo.GetImageByMessage(f.ctx, out.Message.ID)
		require.NoError(t, err)
		assert.Equal(t, 640, img.Width)
		assert.Equal(t, out.Message.CreatedAt.Add(usecase.DefaultImageRetention), img.DeleteAfter)
	})
}

func TestRequestImageUpload(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockObjectStore(ctrl)
	uc := usecase.NewRequestImageUploadUseCase(f.repo, store, time.Minute)

	t.Run("unsupported type", func(t *testing.T) {
		_, err := uc.Execute(f.ctx, usecase.RequestImageUploadInput{ConversationID: f.convID, UserID: f.alice, ContentType: "image/tiff", Size: 10})
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedImage)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := uc.Execute(f.ctx, usecase.RequestImageUploadInput{ConversationID: f.convID, UserID: f.alice, ContentType: "image/png", Size: usecase.MaxImageBytes + 1})
		assert.ErrorIs(t, err, apperrors.ErrImageTooLarge)
	})

	t.Run("outsider", func(t *testing.T) {
		_, err := uc.Execute(f.ctx, usecase.RequestImageUploadInput{ConversationID: f.convID, UserID: f.mallory, ContentType: "image/png", Size: 10})
		assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
	})

	t.Run("key is scoped to the conversation", func(t *testing.T) {
		store.EXPECT().PresignUpload(gomock.Any(), gomock.Any(), "image/jpeg", int64(2048), time.Minute).
			DoAndReturn(func(_ interface{}, key, _ string, _ int64, ttl time.Duration) (storage.UploadGrant, error) {
				return storage.UploadGrant{Key: key, URL: "https://uploads.test/" + key, ExpiresAt: time.Now().Add(ttl)}, nil
			})

		grant, err := uc.Execute(f.ctx, usecase.RequestImageUploadInput{ConversationID: f.convID, UserID: f.alice, ContentType: "Image/JPEG; charset=binary", Size: 2048})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(grant.Key, usecase.ImageKeyPrefix(f.convID)))
		assert.True(t, strings.HasSuffix(grant.Key, ".jpg"))
	})
}

func TestEraseImage(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockObjectStore(ctrl)
	uc := usecase.NewEraseImageUseCase(f.repo, store, discard)

	created := f.clock.Now()
	key := usecase.ImageKeyPrefix(f.convID) + "a.png"
	msg := chat.Message{
		ID: chat.NewMessageID(), ConversationID: f.convID, SenderID: f.alice,
		Type: chat.MessageTypeImage, AttachmentRef: &key, CreatedAt: created,
	}
	img := chat.MessageImage{ID: uuid.NewString(), MessageID: msg.ID, StorageKey: key, Width: 1, Height: 1, CreatedAt: created, DeleteAfter: created.Add(time.Hour)}
	require.NoError(t, f.repo.SaveImageMessage(f.ctx, msg, img))

	_, err := uc.Execute(f.ctx, usecase.EraseImageInput{MessageID: msg.ID, UserID: f.bob})
	assert.ErrorIs(t, err, apperrors.ErrNotImageOwner)

	store.EXPECT().Delete(gomock.Any(), key).Return(nil)
	erased, err := uc.Execute(f.ctx, usecase.EraseImageInput{MessageID: msg.ID, UserID: f.alice})
	require.NoError(t, err)
	assert.Equal(t, img.ID, erased.ID)

	_, err = uc.Execute(f.ctx, usecase.EraseImageInput{MessageID: msg.ID, UserID: f.alice})
	assert.ErrorIs(t, err, apperrors.ErrImageNotFound)
}

func TestFetchMessages_Paging(t *testing.T) {
	f := newFixture(t)
	var sent []chat.Message
	for i := 0; i < 5; i++ {
		sent = append(sent, f.postText(t, f.alice, string(rune('a'+i))))
	}
	uc := usecase.NewFetchMessagesUseCase(f.repo)

	page, err := uc.Execute(f.ctx, usecase.FetchMessagesInput{ConversationID: f.convID, UserID: f.bob, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, sent[3].ID, page.Messages[0].ID)
	assert.Equal(t, sent[4].ID, page.Messages[1].ID)
	assert.True(t, page.HasMore)

	page, err = uc.Execute(f.ctx, usecase.FetchMessagesInput{ConversationID: f.convID, UserID: f.bob, Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{sent[1].ID, sent[2].ID}, []string{page.Messages[0].ID, page.Messages[1].ID})

	page, err = uc.Execute(f.ctx, usecase.FetchMessagesInput{ConversationID: f.convID, UserID: f.bob, Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, sent[0].ID, page.Messages[0].ID)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)

	_, err = uc.Execute(f.ctx, usecase.FetchMessagesInput{ConversationID: f.convID, UserID: f.bob, Cursor: "!!"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCursor)

	_, err = uc.Execute(f.ctx, usecase.FetchMessagesInput{ConversationID: f.convID, UserID: f.mallory})
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 4, 3, 2, 1, 123456000, time.UTC)
	c, err := usecase.DecodeCursor(usecase.EncodeCursor(cursorOf(at, "m-1")))
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(at))
	assert.Equal(t, "m-1", c.ID)
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	fromBob := f.postText(t, f.bob, "hello")
	f.postText(t, f.bob, "again")
	fromAlice := f.postText(t, f.alice, "hi")

	uc := usecase.NewMarkReadUseCase(f.repo)
	uc.Now = f.clock.Now

	t.Run("exactly one mode", func(t *testing.T) {
		_, err := uc.Execute(f.ctx, usecase.MarkReadInput{ConversationID: f.convID, UserID: f.alice})
		assert.ErrorIs(t, err, apperrors.ErrMarkReadMode)
		_, err = uc.Execute(f.ctx, usecase.MarkReadInput{ConversationID: f.convID, UserID: f.alice, MessageID: fromBob.ID, MarkAll: true})
		assert.ErrorIs(t, err, apperrors.ErrMarkReadMode)
	})

	t.Run("own message", func(t *testing.T) {
		_, err := uc.Execute(f.ctx, usecase.MarkReadInput{ConversationID: f.convID, UserID: f.alice, MessageID: fromAlice.ID})
		assert.ErrorIs(t, err, apperrors.ErrOwnMessageRead)
	})

	t.Run("single is idempotent", func(t *testing.T) {
		res, err := uc.Execute(f.ctx, usecase.MarkReadInput{ConversationID: f.convID, UserID: f.alice, MessageID: fromBob.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 1, res.Count)
		require.NotNil(t, res.Message.ReadAt)
		first := *res.Message.ReadAt

		res, err = uc.Execute(f.ctx, usecase.MarkReadInput{ConversationID: f.convID, UserID: f.alice, MessageID: fromBob.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 0, res.Count)
		assert.True(t, res.Message.ReadAt.Equal(first))
	})

	t.Run("mark all counts only unread incoming", func(t *testing.T) {
		res, err := uc.Execute(f.ctx, usecase.MarkReadInput{ConversationID: f.convID, UserID: f.alice, MarkAll: true})
		require.NoError(t, err)
		assert.EqualValues(t, 1, res.Count)
		assert.True(t, res.MarkAll)
	})

	t.Run("unknown message", func(t *testing.T) {
		_, err := uc.Execute(f.ctx, usecase.MarkReadInput{ConversationID: f.convID, UserID: f.alice, MessageID: uuid.NewString()})
		assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)
	})
}

func TestSearchMessages(t *testing.T) {
	f := newFixture(t)
	f.postText(t, f.bob, "the invoice is attached")
	f.postText(t, f.alice, "thanks for the invoice, invoice received")
	f.postText(t, f.bob, "see you monday")

	uc := usecase.NewSearchMessagesUseCase(f.repo)

	hits, err := uc.Execute(f.ctx, usecase.SearchMessagesInput{UserID: f.alice, Query: "invoice"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Contains(t, *hits[0].Content, "invoice received")

	hits, err = uc.Execute(f.ctx, usecase.SearchMessagesInput{UserID: f.mallory, Query: "invoice"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = uc.Execute(f.ctx, usecase.SearchMessagesInput{UserID: f.mallory, Query: "invoice", ConversationID: f.convID})
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	_, err = uc.Execute(f.ctx, usecase.SearchMessagesInput{UserID: f.alice, Query: "   "})
	assert.ErrorIs(t, err, apperrors.ErrEmptyQuery)

	_, err = uc.Execute(f.ctx, usecase.SearchMessagesInput{UserID: f.alice, Query: strings.Repeat("q", 201)})
	assert.ErrorIs(t, err, apperrors.ErrQueryTooLong)
}
