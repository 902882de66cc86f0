// Package identity verifies the bearer credentials issued by the
// marketplace's identity service. Only HS256 tokens carrying a subject are
// accepted; the subject is the user id.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gbrlsnchs/jwt/v3"
)

var (
	ErrMissingCredential = errors.New("identity: missing credential")
	ErrInvalidCredential = errors.New("identity: invalid credential")
)

// Verifier resolves a raw credential to a user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

// Claims is the token payload. Role is informational only; chat access is
// decided per conversation.
type Claims struct {
	jwt.Payload
	Role string `json:"role,omitempty"`
}

type JWTVerifier struct {
	alg *jwt.HMACSHA
	now func() time.Time
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{alg: jwt.NewHS256([]byte(secret)), now: time.Now}
}

var _ Verifier = (*JWTVerifier)(nil)

func (v *JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingCredential
	}
	var (
		claims Claims
		now    = v.now()
	)
	validate := jwt.ValidatePayload(&claims.Payload,
		jwt.ExpirationTimeValidator(now),
		jwt.NotBeforeValidator(now),
	)
	if _, err := jwt.Verify([]byte(token), v.alg, &claims, validate); err != nil {
		return "", ErrInvalidCredential
	}
	if claims.Subject == "" || claims.ExpirationTime == nil {
		return "", ErrInvalidCredential
	}
	return claims.Subject, nil
}

// Issue signs a token for userID valid for ttl. The identity service owns
// issuance in production; this exists for tests and local tooling.
func (v *JWTVerifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := v.now()
	token, err := jwt.Sign(Claims{Payload: jwt.Payload{
		Subject:        userID,
		IssuedAt:       jwt.NumericDate(now),
		ExpirationTime: jwt.NumericDate(now.Add(ttl)),
	}}, v.alg)
	if err != nil {
		return "", err
	}
	return string(token), nil
}

// FromAuthorization extracts the token from an "Authorization: Bearer x"
// header value.
func FromAuthorization(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
