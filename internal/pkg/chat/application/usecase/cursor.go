package usecase

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	apperrors "marketplace-chat/pkg/errors"
)

// Cursors are opaque to clients: base64url("<unix micros>:<message id>").

func EncodeCursor(c repository.Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixMicro(), 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (*repository.Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, apperrors.ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return nil, apperrors.ErrInvalidCursor
	}
	micros, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, apperrors.ErrInvalidCursor
	}
	return &repository.Cursor{CreatedAt: time.UnixMicro(micros).UTC(), ID: id}, nil
}
