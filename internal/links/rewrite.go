// Package links recognizes file-hosting providers, rewrites their viewer
// links into direct-download links and decides which hosts have to go
// through the same-origin relay.
package links

import (
	"net/url"

	"cicloteca-backend/internal/providers/dropbox"
	"cicloteca-backend/internal/providers/googledrive"
	"cicloteca-backend/internal/providers/onedrive"
)

type directLinker func(u *url.URL) (string, bool)

// tried in order, the first provider that recognizes the URL rewrites it
var directLinkers = []directLinker{
	googledrive.DirectLink,
	dropbox.DirectLink,
	onedrive.DirectLink,
}

// IsKnownHost reports whether host belongs to a known cloud-drive or
// file-sync provider
func IsKnownHost(host string) bool {
	return googledrive.IsHost(host) || dropbox.IsHost(host)
}

// RewriteToDirectLink turns a provider viewer URL into a direct-download
// URL. Unrecognized or unparseable URLs come back unchanged. Applying it to
// its own output is a no-op.
func RewriteToDirectLink(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	for _, linker := range directLinkers {
		if direct, ok := linker(u); ok {
			return direct
		}
	}
	return raw
}
