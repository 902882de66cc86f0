package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	storage "marketplace-chat/internal/infrastructure/storage/port"
	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	users "marketplace-chat/internal/repository/port"
	apperrors "marketplace-chat/pkg/errors"
)

const (
	// DefaultImageRetention is how long image attachments are kept.
	DefaultImageRetention = 30 * 24 * time.Hour
	maxImageDimension     = 20000
	pushPreviewLength     = 120
)

// SendMessageInput carries the data needed to send a new message.
// Width and Height describe IMAGE attachments; zero means unknown.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Type           chat.MessageType
	Content        *string
	AttachmentRef  *string
	Metadata       map[string]string
	Width          int
	Height         int
}

// SentMessage is the persisted message plus what clients need to render
// it immediately.
type SentMessage struct {
	Message     chat.Message
	Sender      chat.Profile
	RecipientID string
}

// SendMessageUseCase persists a message and then runs the best-effort side
// effects: search indexing and the offline push check. Side-effect
// failures are logged and never fail the send.
type SendMessageUseCase struct {
	Repo           repository.ChatRepository
	Users          users.UserDirectory
	Presence       PresenceReader
	Notifier       Notifier
	Indexer        SearchIndexer
	Store          storage.ObjectStore
	ImageRetention time.Duration
	Log            logrus.FieldLogger
	Now            func() time.Time
}

func NewSendMessageUseCase(
	repo repository.ChatRepository,
	dir users.UserDirectory,
	p PresenceReader,
	notifier Notifier,
	indexer SearchIndexer,
	store storage.ObjectStore,
	log logrus.FieldLogger,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		Repo:           repo,
		Users:          dir,
		Presence:       p,
		Notifier:       notifier,
		Indexer:        indexer,
		Store:          store,
		ImageRetention: DefaultImageRetention,
		Log:            log,
		Now:            time.Now,
	}
}

// Execute sends/persists a new message for a conversation
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*SentMessage, error) {
	agg, err := loadChat(ctx, uc.Repo, in.ConversationID, in.SenderID)
	if err != nil {
		return nil, err
	}

	typ := in.Type
	if typ == "" {
		typ = chat.MessageTypeText
	}
	msg, err := agg.PostMessage(chat.Message{
		SenderID:      in.SenderID,
		Type:          typ,
		Content:       in.Content,
		AttachmentRef: in.AttachmentRef,
		Metadata:      in.Metadata,
	}, uc.Now())
	if err != nil {
		return nil, err
	}

	if msg.Type == chat.MessageTypeImage {
		err = uc.saveImage(ctx, msg, in.Width, in.Height)
	} else {
		err = uc.Repo.SaveMessage(ctx, *msg)
		if err != nil {
			err = storeErr(err)
		}
	}
	if err != nil {
		return nil, err
	}

	sender := resolveProfiles(ctx, uc.Users, uc.Log, in.SenderID)[in.SenderID]
	recipient := agg.Recipient(in.SenderID)
	uc.afterSend(ctx, msg, sender, recipient)

	return &SentMessage{Message: *msg, Sender: sender, RecipientID: recipient}, nil
}

func storeErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.ErrConversationNotFound
	}
	return persistence(err)
}

// ImageKeyPrefix scopes uploaded objects to their conversation.
func ImageKeyPrefix(conversationID string) string {
	return "conversations/" + conversationID + "/"
}

func (uc *SendMessageUseCase) saveImage(ctx context.Context, msg *chat.Message, width, height int) error {
	key := strings.TrimSpace(*msg.AttachmentRef)
	if !strings.HasPrefix(key, ImageKeyPrefix(msg.ConversationID)) {
		return apperrors.ErrForeignStorageKey
	}
	if width < 0 || height < 0 || width > maxImageDimension || height > maxImageDimension {
		return apperrors.ErrImageDimensions
	}
	if uc.Store == nil {
		return apperrors.ErrUploadMissing
	}
	exists, err := uc.Store.Exists(ctx, key)
	if errors.Is(err, storage.ErrInvalidKey) {
		return apperrors.ErrForeignStorageKey
	}
	if err != nil {
		return apperrors.Internal("object storage failure", err)
	}
	if !exists {
		return apperrors.ErrUploadMissing
	}

	msg.AttachmentRef = &key
	retention := uc.ImageRetention
	if retention <= 0 {
		retention = DefaultImageRetention
	}
	img := chat.MessageImage{
		ID:          uuid.NewString(),
		MessageID:   msg.ID,
		StorageKey:  key,
		Width:       width,
		Height:      height,
		CreatedAt:   msg.CreatedAt,
		DeleteAfter: msg.CreatedAt.Add(retention),
	}
	if err := uc.Repo.SaveImageMessage(ctx, *msg, img); err != nil {
		return storeErr(err)
	}
	return nil
}

func (uc *SendMessageUseCase) afterSend(ctx context.Context, msg *chat.Message, sender chat.Profile, recipient string) {
	log := uc.Log.WithFields(logrus.Fields{
		"function":        "SendMessage",
		"conversation_id": msg.ConversationID,
		"message_id":      msg.ID,
	})

	if uc.Indexer != nil {
		if err := uc.Indexer.IndexMessage(ctx, msg.ID); err != nil {
			log.WithError(err).Warn("search index update failed")
		}
	}

	if uc.Notifier == nil || !uc.shouldNotify(ctx, log, recipient) {
		return
	}
	err := uc.Notifier.NotifyOfflineMessage(ctx, OfflineNotice{
		RecipientID:    recipient,
		SenderID:       sender.UserID,
		SenderName:     sender.DisplayName,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Preview:        msg.Preview(pushPreviewLength),
	})
	if err != nil {
		log.WithError(err).Warn("offline notification dispatch failed")
	}
}

// shouldNotify is true when the recipient is not ONLINE and accepts push.
// Lookup failures lean towards notifying.
func (uc *SendMessageUseCase) shouldNotify(ctx context.Context, log logrus.FieldLogger, recipient string) bool {
	if uc.Presence != nil {
		online, err := uc.Presence.IsOnline(ctx, recipient)
		if err != nil {
			log.WithError(err).Warn("presence lookup failed; treating recipient as offline")
		} else if online {
			return false
		}
	}
	if uc.Users != nil {
		enabled, err := uc.Users.PushEnabled(ctx, recipient)
		if err != nil {
			log.WithError(err).Warn("push preference lookup failed; assuming enabled")
			return true
		}
		return enabled
	}
	return true
}
