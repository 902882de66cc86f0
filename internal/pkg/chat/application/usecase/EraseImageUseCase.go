package usecase

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	storage "marketplace-chat/internal/infrastructure/storage/port"
	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	apperrors "marketplace-chat/pkg/errors"
)

type EraseImageInput struct {
	MessageID string
	UserID    string
}

// EraseImageUseCase purges an image ahead of its retention deadline. The
// object goes first so a failure leaves the record for the cleanup job.
type EraseImageUseCase struct {
	Repo  repository.ChatRepository
	Store storage.ObjectStore
	Log   logrus.FieldLogger
}

func NewEraseImageUseCase(repo repository.ChatRepository, store storage.ObjectStore, log logrus.FieldLogger) *EraseImageUseCase {
	return &EraseImageUseCase{Repo: repo, Store: store, Log: log}
}

func (uc *EraseImageUseCase) Execute(ctx context.Context, in EraseImageInput) (*chat.MessageImage, error) {
	if in.UserID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	m, err := uc.Repo.GetMessage(ctx, in.MessageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return nil, persistence(err)
	}
	if m.SenderID != in.UserID {
		return nil, apperrors.ErrNotImageOwner
	}

	img, err := uc.Repo.GetImageByMessage(ctx, m.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrImageNotFound
	}
	if err != nil {
		return nil, persistence(err)
	}

	if err := uc.Store.Delete(ctx, img.StorageKey); err != nil {
		return nil, apperrors.Internal("object storage failure", err)
	}
	if err := uc.Repo.DeleteImage(ctx, img.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, persistence(err)
	}
	uc.Log.WithFields(logrus.Fields{
		"function":   "EraseImage",
		"message_id": m.ID,
		"image_id":   img.ID,
	}).Info("image erased")
	return img, nil
}
