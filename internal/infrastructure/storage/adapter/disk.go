package adapter

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"marketplace-chat/internal/infrastructure/storage/port"
)

// DiskStore keeps objects under a root directory and accepts uploads on
// HMAC-signed URLs served by this process at {publicURL}/api/v1/uploads/{key}.
type DiskStore struct {
	root      string
	publicURL string
	key       []byte
	now       func() time.Time
}

func NewDiskStore(root, publicURL, signingKey string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("storage: root directory is empty")
	}
	if signingKey == "" {
		return nil, errors.New("storage: signing key is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &DiskStore{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
		key:       []byte(signingKey),
		now:       time.Now,
	}, nil
}

var (
	_ port.ObjectStore  = (*DiskStore)(nil)
	_ port.UploadTarget = (*DiskStore)(nil)
)

// path resolves key inside root, rejecting anything that would escape it.
func (d *DiskStore) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", port.ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", port.ErrInvalidKey
	}
	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}

func (d *DiskStore) sign(key, contentType string, maxBytes, expires int64) string {
	mac := hmac.New(sha256.New, d.key)
	fmt.Fprintf(mac, "%s\n%s\n%d\n%d", key, contentType, maxBytes, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

func (d *DiskStore) PresignUpload(_ context.Context, key, contentType string, maxBytes int64, ttl time.Duration) (port.UploadGrant, error) {
	if _, err := d.path(key); err != nil {
		return port.UploadGrant{}, err
	}
	expiresAt := d.now().Add(ttl).UTC().Truncate(time.Second)
	exp := expiresAt.Unix()

	q := url.Values{}
	q.Set("ct", contentType)
	q.Set("max", strconv.FormatInt(maxBytes, 10))
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", d.sign(key, contentType, maxBytes, exp))

	return port.UploadGrant{
		Key:       key,
		URL:       d.publicURL + "/api/v1/uploads/" + key + "?" + q.Encode(),
		ExpiresAt: expiresAt,
	}, nil
}

func (d *DiskStore) Accept(_ context.Context, key string, query map[string]string, contentType string, body io.Reader) error {
	target, err := d.path(key)
	if err != nil {
		return err
	}
	maxBytes, err1 := strconv.ParseInt(query["max"], 10, 64)
	exp, err2 := strconv.ParseInt(query["exp"], 10, 64)
	if err1 != nil || err2 != nil {
		return port.ErrBadSignature
	}
	want := d.sign(key, query["ct"], maxBytes, exp)
	if !hmac.Equal([]byte(want), []byte(query["sig"])) || d.now().Unix() > exp {
		return port.ErrBadSignature
	}
	if !strings.EqualFold(strings.TrimSpace(strings.Split(contentType, ";")[0]), query["ct"]) {
		return port.ErrContentType
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	// Read one byte past the limit to detect oversized bodies.
	n, err := io.Copy(tmp, io.LimitReader(body, maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if n > maxBytes {
		return port.ErrTooLarge
	}
	return os.Rename(tmp.Name(), target)
}

func (d *DiskStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := d.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (d *DiskStore) Delete(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
