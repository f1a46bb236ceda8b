// Package dropbox rewrites Dropbox share links into direct-content links.
package dropbox

import (
	"net/url"
	"strings"
)

const (
	// WebHost serves the preview page of a shared file
	WebHost = "www.dropbox.com"
	// ContentHost serves the raw bytes of a shared file
	ContentHost = "dl.dropboxusercontent.com"
)

// Hosts lists every Dropbox host a library file can live on
var Hosts = []string{
	"dropbox.com",
	WebHost,
	ContentHost,
}

// IsHost checks if host is a Dropbox web or content host
func IsHost(host string) bool {
	host = strings.ToLower(host)
	for _, validHost := range Hosts {
		if host == validHost || strings.HasSuffix(host, "."+validHost) {
			return true
		}
	}
	return false
}

func isWebHost(host string) bool {
	host = strings.ToLower(host)
	return host == "dropbox.com" || host == WebHost
}

// DirectLink moves a share link from the web host to the content host and
// drops the "dl" flag that makes Dropbox show its preview page.
func DirectLink(u *url.URL) (string, bool) {
	if !isWebHost(u.Hostname()) {
		return "", false
	}

	direct := *u
	direct.Scheme = "https"
	direct.Host = ContentHost

	query := direct.Query()
	query.Del("dl")
	direct.RawQuery = query.Encode()

	return direct.String(), true
}
