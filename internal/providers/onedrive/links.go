package onedrive

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// sharesAPI is the endpoint that resolves an encoded share link
const sharesAPI = "https://api.onedrive.com/v1.0/shares/"

// ShareHosts serve OneDrive share links
var ShareHosts = []string{
	"1drv.ms",
	"onedrive.live.com",
}

// ContentHosts serve the bytes behind a resolved share link
var ContentHosts = []string{
	"api.onedrive.com",
	"1drv.com",
	"d.docs.live.net",
}

func hostIn(host string, hosts []string) bool {
	host = strings.ToLower(host)
	for _, validHost := range hosts {
		if host == validHost || strings.HasSuffix(host, "."+validHost) {
			return true
		}
	}
	return false
}

// IsHost checks if host is any OneDrive share or content host
func IsHost(host string) bool {
	return hostIn(host, ShareHosts) || hostIn(host, ContentHosts)
}

// isShareLink checks if the URL looks like a OneDrive file share link
func isShareLink(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if !hostIn(host, ShareHosts) {
		return false
	}

	// Short links carry the share in the path, long links in the query
	if host == "1drv.ms" {
		return strings.Trim(u.Path, "/") != ""
	}
	return u.RawQuery != ""
}

// EncodeShareToken encodes a share URL for use with the OneDrive shares API
func EncodeShareToken(shareURL string) string {
	cleanURL := strings.TrimSpace(shareURL)
	cleanURL = strings.TrimSuffix(cleanURL, "/")

	// unpadded base64url, prefixed with u!
	encoded := base64.StdEncoding.EncodeToString([]byte(cleanURL))
	encoded = strings.TrimRight(encoded, "=")
	encoded = strings.ReplaceAll(encoded, "/", "_")
	encoded = strings.ReplaceAll(encoded, "+", "-")

	return "u!" + encoded
}

// DirectLink turns a share link into a shares API content URL, which
// redirects to the file bytes without the OneDrive viewer.
func DirectLink(u *url.URL) (string, bool) {
	if !isShareLink(u) {
		return "", false
	}
	return sharesAPI + EncodeShareToken(u.String()) + "/root/content", true
}
