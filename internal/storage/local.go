package storage

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultURLExpiry is how long a signed local URL stays valid
const DefaultURLExpiry = 24 * time.Hour

// LocalBackend serves a directory of library files and signs expiring
// download URLs for them. It stands in for the cloud bucket in development.
type LocalBackend struct {
	baseDir   string
	publicURL string
	secret    []byte
	expiry    time.Duration
	now       func() time.Time
}

// NewLocalBackend creates a backend rooted at baseDir whose URLs start with
// publicURL. An empty secret is replaced by a random one, which makes
// previously issued URLs invalid after a restart.
func NewLocalBackend(baseDir, publicURL, secret string) (*LocalBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}

	return &LocalBackend{
		baseDir:   baseDir,
		publicURL: strings.TrimRight(publicURL, "/"),
		secret:    key,
		expiry:    DefaultURLExpiry,
		now:       time.Now,
	}, nil
}

// PublicHost returns the host download URLs are served from
func (b *LocalBackend) PublicHost() string {
	u, err := url.Parse(b.publicURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// DownloadURL signs a URL for path if the file exists
func (b *LocalBackend) DownloadURL(_ context.Context, path string) (string, error) {
	fullPath, err := b.resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(fullPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return "", fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	case err != nil:
		return "", fmt.Errorf("stat object: %w", err)
	case info.IsDir():
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, path)
	}

	expires := b.now().Add(b.expiry).Unix()
	params := url.Values{}
	params.Set("expires", strconv.FormatInt(expires, 10))
	params.Set("token", b.sign(path, expires))

	return b.publicURL + "/files/" + escapePath(path) + "?" + params.Encode(), nil
}

// Verify checks the signature and expiry of a download request
func (b *LocalBackend) Verify(path, expires, token string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if b.now().Unix() > exp {
		return ErrInvalidSignature
	}
	want := b.sign(path, exp)
	if !hmac.Equal([]byte(want), []byte(token)) {
		return ErrInvalidSignature
	}
	return nil
}

// Open opens the file behind path for serving
func (b *LocalBackend) Open(path string) (*os.File, error) {
	fullPath, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

// resolve maps a storage path into baseDir, refusing anything that would
// escape it
func (b *LocalBackend) resolve(path string) (string, error) {
	if path == "" || strings.HasPrefix(path, "/") || !fs.ValidPath(path) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return filepath.Join(b.baseDir, filepath.FromSlash(path)), nil
}

func (b *LocalBackend) sign(path string, expires int64) string {
	mac := hmac.New(sha256.New, b.secret)
	mac.Write([]byte(path))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
