package usecase

import (
	"context"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	apperrors "marketplace-chat/pkg/errors"
)

type ConfirmImageUploadInput struct {
	ConversationID string
	UserID         string
	StorageKey     string
	Width          int
	Height         int
	Caption        *string
}

// ConfirmImageUploadUseCase is phase two: once the object exists it is
// sent as an IMAGE message with a retention record.
type ConfirmImageUploadUseCase struct {
	Send *SendMessageUseCase
}

func NewConfirmImageUploadUseCase(send *SendMessageUseCase) *ConfirmImageUploadUseCase {
	return &ConfirmImageUploadUseCase{Send: send}
}

func (uc *ConfirmImageUploadUseCase) Execute(ctx context.Context, in ConfirmImageUploadInput) (*SentMessage, error) {
	if in.StorageKey == "" {
		return nil, apperrors.ErrAttachmentRequired
	}
	if in.Width <= 0 || in.Height <= 0 {
		return nil, apperrors.ErrImageDimensions
	}
	key := in.StorageKey
	return uc.Send.Execute(ctx, SendMessageInput{
		ConversationID: in.ConversationID,
		SenderID:       in.UserID,
		Type:           chat.MessageTypeImage,
		Content:        in.Caption,
		AttachmentRef:  &key,
		Width:          in.Width,
		Height:         in.Height,
	})
}
