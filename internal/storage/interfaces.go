package storage

import (
	"context"
)

// Backend issues time-limited download URLs for storage paths
type Backend interface {
	DownloadURL(ctx context.Context, path string) (string, error)
}
