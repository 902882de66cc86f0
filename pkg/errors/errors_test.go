package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("send: %w", ErrNotParticipant)

	assert.Equal(t, KindForbidden, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("boom")))
	assert.True(t, IsKind(wrapped, KindForbidden))
	assert.False(t, IsKind(wrapped, KindNotFound))
}

func TestSentinelMatchesByKindAndMessage(t *testing.T) {
	err := Forbidden("user is not a participant in this conversation")

	assert.ErrorIs(t, err, ErrNotParticipant)
	assert.NotErrorIs(t, err, ErrOwnMessageRead)
}

func TestPublicHidesInternalCause(t *testing.T) {
	kind, msg := Public(Internal("db exploded", stderrors.New("password=hunter2")))
	assert.Equal(t, KindInternal, kind)
	assert.Equal(t, "internal server error", msg)

	kind, msg = Public(ErrContentTooLong)
	assert.Equal(t, KindValidation, kind)
	assert.Equal(t, "message content exceeds 5000 characters", msg)
}

func TestErrorIncludesCause(t *testing.T) {
	err := Wrap(KindConflict, "duplicate", stderrors.New("unique violation"))
	assert.Equal(t, "duplicate: unique violation", err.Error())
	assert.Equal(t, "unique violation", stderrors.Unwrap(err).Error())
}
