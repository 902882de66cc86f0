package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	storage "marketplace-chat/internal/infrastructure/storage/port"
	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	apperrors "marketplace-chat/pkg/errors"
)

// MaxImageBytes caps a single image upload.
const MaxImageBytes = 10 << 20

const defaultUploadTTL = 15 * time.Minute

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

type RequestImageUploadInput struct {
	ConversationID string
	UserID         string
	ContentType    string
	Size           int64
}

// RequestImageUploadUseCase is phase one of the image flow: it hands the
// client a short-lived write location scoped to the conversation.
type RequestImageUploadUseCase struct {
	Repo      repository.ChatRepository
	Store     storage.ObjectStore
	UploadTTL time.Duration
}

func NewRequestImageUploadUseCase(repo repository.ChatRepository, store storage.ObjectStore, ttl time.Duration) *RequestImageUploadUseCase {
	if ttl <= 0 {
		ttl = defaultUploadTTL
	}
	return &RequestImageUploadUseCase{Repo: repo, Store: store, UploadTTL: ttl}
}

func (uc *RequestImageUploadUseCase) Execute(ctx context.Context, in RequestImageUploadInput) (*storage.UploadGrant, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(in.ContentType, ";")[0]))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, apperrors.ErrUnsupportedImage
	}
	if in.Size <= 0 || in.Size > MaxImageBytes {
		return nil, apperrors.ErrImageTooLarge
	}
	agg, err := loadChat(ctx, uc.Repo, in.ConversationID, in.UserID)
	if err != nil {
		return nil, err
	}
	if agg.Conversation.Status != chat.ConversationActive {
		return nil, chat.ErrConversationArchived
	}

	key := ImageKeyPrefix(in.ConversationID) + uuid.NewString() + "." + ext
	grant, err := uc.Store.PresignUpload(ctx, key, contentType, in.Size, uc.UploadTTL)
	if err != nil {
		return nil, apperrors.Internal("object storage failure", err)
	}
	return &grant, nil
}
