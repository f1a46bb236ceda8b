package googledrive

import (
	"net/url"
	"regexp"
	"strings"

	"cicloteca-backend/internal/reference"
)

// Hosts lists the Google Drive domains. Subdomains match too.
var Hosts = []string{
	"drive.google.com",
	"docs.google.com",
	"drive.usercontent.google.com",
	"googledrive.com",
}

var (
	fileIDPattern  = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	shortIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)
	queryIDPattern = regexp.MustCompile(`(?:^|[?&])id=([a-zA-Z0-9_-]+)`)
	bareIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)
)

// IsHost checks if host belongs to Google Drive
func IsHost(host string) bool {
	host = strings.ToLower(host)
	for _, validHost := range Hosts {
		if host == validHost || strings.HasSuffix(host, "."+validHost) {
			return true
		}
	}
	return false
}

// ViewURL returns the canonical viewer URL for a file id
func ViewURL(id string) string {
	return "https://drive.google.com/file/d/" + url.PathEscape(id) + "/view"
}

// DownloadURL returns the export-download URL for a file id
func DownloadURL(id string) string {
	// built by hand: url.Values.Encode would sort "id" before "export"
	return "https://drive.google.com/uc?export=download&id=" + url.QueryEscape(id)
}

// DirectLink rewrites a Drive viewer URL (/file/d/<id>/...) into its
// download URL. Any other URL is reported as not rewritable.
func DirectLink(u *url.URL) (string, bool) {
	if !IsHost(u.Hostname()) {
		return "", false
	}
	matches := fileIDPattern.FindStringSubmatch(u.Path)
	if len(matches) < 2 {
		return "", false
	}
	return DownloadURL(matches[1]), true
}

// ExtractID pulls a file id out of whatever a contributor pasted: a full
// share URL, a URL without scheme, URL fragments, or a bare id.
func ExtractID(raw string) (string, bool) {
	s := reference.Clean(raw)
	if s == "" {
		return "", false
	}

	// Format 1: an http(s) URL somewhere in the string
	if idx := strings.Index(s, "http"); idx >= 0 {
		if id, ok := idFromRawURL(s[idx:]); ok {
			return id, true
		}
	}

	// Format 2: a Drive URL pasted without its scheme
	if id, ok := idFromRawURL("https://" + s); ok {
		return id, true
	}

	// Format 3: plain pattern matching, first hit wins
	for _, re := range []*regexp.Regexp{fileIDPattern, shortIDPattern, queryIDPattern} {
		if matches := re.FindStringSubmatch(s); len(matches) > 1 {
			return matches[1], true
		}
	}

	if bareIDPattern.MatchString(s) {
		return s, true
	}
	return "", false
}

func idFromRawURL(raw string) (string, bool) {
	parsedURL, err := url.Parse(raw)
	if err != nil || !IsHost(parsedURL.Hostname()) {
		return "", false
	}
	return idFromURL(parsedURL)
}

func idFromURL(parsedURL *url.URL) (string, bool) {
	path := parsedURL.Path

	if matches := fileIDPattern.FindStringSubmatch(path); len(matches) > 1 {
		return matches[1], true
	}
	if matches := shortIDPattern.FindStringSubmatch(path); len(matches) > 1 {
		return matches[1], true
	}
	if id := parsedURL.Query().Get("id"); id != "" {
		return id, true
	}
	return "", false
}
