package storage

import "errors"

var (
	ErrObjectNotFound   = errors.New("object not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNoDownloadURL    = errors.New("object has no download token")
	ErrInvalidPath      = errors.New("invalid storage path")
	ErrInvalidSignature = errors.New("invalid or expired signature")
)
