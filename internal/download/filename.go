package download

import (
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	extendedFilenamePattern = regexp.MustCompile(`(?i)filename\*\s*=\s*(?:UTF-8|utf-8)''([^;]+)`)
	plainFilenamePattern    = regexp.MustCompile(`(?i)filename\s*=\s*("[^"]*"|[^;]+)`)
)

// GuessFileName picks the name a downloaded file should be saved under.
//
// In order: the Content-Disposition header (the RFC 5987 filename* form
// wins over the plain one), the last URL path segment when it has a dot,
// the filename inside a response-content-disposition query parameter (as
// used by signed storage URLs), and finally fallback.
func GuessFileName(header http.Header, rawURL, fallback string) string {
	if header != nil {
		if name := filenameFromDisposition(header.Get("Content-Disposition")); name != "" {
			return name
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}

	if segment := path.Base(u.Path); segment != "." && segment != "/" && strings.Contains(segment, ".") {
		return segment
	}

	if disposition := u.Query().Get("response-content-disposition"); disposition != "" {
		if name := filenameFromDisposition(disposition); name != "" {
			return name
		}
	}
	return fallback
}

func filenameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}

	if matches := extendedFilenamePattern.FindStringSubmatch(disposition); len(matches) > 1 {
		raw := strings.Trim(strings.TrimSpace(matches[1]), `"`)
		if name, err := url.PathUnescape(raw); err == nil && name != "" {
			return name
		}
	}

	if matches := plainFilenamePattern.FindStringSubmatch(disposition); len(matches) > 1 {
		name := strings.Trim(strings.TrimSpace(matches[1]), `"`)
		if name != "" {
			return name
		}
	}
	return ""
}
