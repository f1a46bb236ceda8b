// Package reference canonicalizes file references into either an absolute
// URL or a storage-relative path. Nothing here performs I/O.
package reference

import (
	"net/url"
	"regexp"
	"strings"

	"cicloteca-backend/pkg/models"
)

const (
	bom            = "\uFEFF"
	zeroWidthSpace = "\u200B"
)

var extensionPattern = regexp.MustCompile(`\.[A-Za-z0-9]{2,6}$`)

// Target is a normalized reference
type Target struct {
	Value    string
	Absolute bool
}

// Clean removes the artifacts that show up when references are pasted by
// hand: BOM and zero-width spaces at either end, surrounding whitespace and
// quote characters.
func Clean(s string) string {
	for {
		before := s
		s = strings.TrimSpace(s)
		s = strings.Trim(s, "\"'`")
		s = strings.TrimPrefix(s, bom)
		s = strings.TrimSuffix(s, bom)
		s = strings.TrimPrefix(s, zeroWidthSpace)
		s = strings.TrimSuffix(s, zeroWidthSpace)
		if s == before {
			return s
		}
	}
}

// Normalize canonicalizes ref. It returns false when there is nothing to
// resolve.
func Normalize(ref models.Reference) (string, bool) {
	switch ref.Kind {
	case models.RefText:
		return normalizeText(ref.Text)
	case models.RefHandle:
		return normalizeHandle(ref)
	default:
		return "", false
	}
}

func normalizeText(raw string) (string, bool) {
	s := Clean(raw)
	// "/https://host/x" is an absolute URL that got a relative prefix glued
	// on; dropping the slash recovers it. Any other single leading slash is
	// a storage path artifact and goes the same way.
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return "", false
	}
	return s, true
}

func normalizeHandle(ref models.Reference) (string, bool) {
	candidates := []string{
		ref.FullPath,
		ref.Path,
		strings.Join(ref.Segments, "/"),
	}
	for _, c := range candidates {
		c = strings.TrimPrefix(Clean(c), "/")
		if c != "" {
			return c, true
		}
	}
	return "", false
}

// IsAbsoluteURL reports whether s is an http(s) URL with a host
func IsAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http:") && !strings.HasPrefix(lower, "https:") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Host != ""
}

// Classify normalizes ref and tells whether the result is already fetchable
func Classify(ref models.Reference) (Target, bool) {
	s, ok := Normalize(ref)
	if !ok {
		return Target{}, false
	}
	return Target{Value: s, Absolute: IsAbsoluteURL(s)}, true
}

// EnsureExtension appends the extension the storage backend expects when a
// library path was stored without one. Books are PDFs, images are JPEGs.
func EnsureExtension(path string) string {
	if extensionPattern.MatchString(path) {
		return path
	}
	namespace, _, _ := strings.Cut(path, "/")
	switch strings.ToLower(namespace) {
	case "books":
		return path + ".pdf"
	case "images":
		return path + ".jpg"
	default:
		return path
	}
}
