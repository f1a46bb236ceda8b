package download

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
)

// DirSink saves files into a directory, never overwriting existing ones
type DirSink struct {
	dir  string
	hint io.Writer
}

// NewDirSink creates a sink for dir. Manual-save hints are written to hint.
func NewDirSink(dir string, hint io.Writer) *DirSink {
	if hint == nil {
		hint = io.Discard
	}
	return &DirSink{dir: dir, hint: hint}
}

func (s *DirSink) Create(name, _ string) (io.WriteCloser, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	base := SanitizeFileName(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 0; i < 1000; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		full := filepath.Join(s.dir, candidate)
		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create file: %w", err)
		}
		return &diskFile{File: f}, nil
	}
	return nil, fmt.Errorf("no free file name for %q in %s", base, s.dir)
}

func (s *DirSink) Open(target string) error {
	_, err := fmt.Fprintf(s.hint, "Could not save the file automatically. Open it and save it manually:\n  %s\n", target)
	return err
}

type diskFile struct {
	*os.File
}

// Abort drops a partially written file
func (f *diskFile) Abort() error {
	f.File.Close()
	return os.Remove(f.Name())
}

// SanitizeFileName strips directories and characters that do not belong
// in a file name
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.FromSlash(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, " .")
	if name == "" {
		return "download"
	}
	return name
}

// ResponseSink streams the file to an HTTP client as an attachment, or
// redirects the client to the file as the last resort
type ResponseSink struct {
	c         echo.Context
	committed bool
}

func NewResponseSink(c echo.Context) *ResponseSink {
	return &ResponseSink{c: c}
}

func (s *ResponseSink) Create(name, contentType string) (io.WriteCloser, error) {
	if s.committed || s.c.Response().Committed {
		return nil, ErrAlreadyCommitted
	}
	s.committed = true

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name = SanitizeFileName(name)

	header := s.c.Response().Header()
	header.Set(echo.HeaderContentType, contentType)
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
	s.c.Response().WriteHeader(http.StatusOK)

	return nopCloser{s.c.Response()}, nil
}

func (s *ResponseSink) Open(target string) error {
	if s.committed || s.c.Response().Committed {
		return ErrAlreadyCommitted
	}
	s.committed = true
	return s.c.Redirect(http.StatusFound, target)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
