package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret")
	token, err := v.Issue("user-1", time.Hour)
	require.NoError(t, err)

	uid, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}

func TestJWTVerifier_Rejects(t *testing.T) {
	ctx := context.Background()
	v := NewJWTVerifier("secret")

	_, err := v.Verify(ctx, "  ")
	assert.ErrorIs(t, err, ErrMissingCredential)

	_, err = v.Verify(ctx, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	other, err := NewJWTVerifier("other-secret").Issue("user-1", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(ctx, other)
	assert.ErrorIs(t, err, ErrInvalidCredential, "wrong signing key")

	expired, err := v.Issue("user-1", time.Minute)
	require.NoError(t, err)
	v.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = v.Verify(ctx, expired)
	assert.ErrorIs(t, err, ErrInvalidCredential, "expired")
}

func TestFromAuthorization(t *testing.T) {
	assert.Equal(t, "abc", FromAuthorization("Bearer abc"))
	assert.Equal(t, "abc", FromAuthorization("bearer  abc "))
	assert.Equal(t, "", FromAuthorization("Basic abc"))
	assert.Equal(t, "", FromAuthorization(""))
}
