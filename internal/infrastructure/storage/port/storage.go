package port

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrInvalidKey   = errors.New("storage: invalid key")
	ErrBadSignature = errors.New("storage: bad or expired upload signature")
	ErrTooLarge     = errors.New("storage: object exceeds the signed size limit")
	ErrContentType  = errors.New("storage: content type does not match the signed upload")
)

// UploadGrant is a pre-authorized write location handed to a client.
type UploadGrant struct {
	Key       string    `json:"storageKey"`
	URL       string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectStore is the external object storage collaborator. Clients upload
// directly to a granted URL; the server only checks existence and deletes.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key, contentType string, maxBytes int64, ttl time.Duration) (UploadGrant, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// UploadTarget is implemented by stores that receive uploads through this
// service instead of a third-party endpoint.
type UploadTarget interface {
	// Accept validates the signed query of an upload URL and stores body.
	Accept(ctx context.Context, key string, query map[string]string, contentType string, body io.Reader) error
}
