package links

import (
	"net/url"
	"strings"

	"cicloteca-backend/internal/providers/dropbox"
	"cicloteca-backend/internal/providers/googledrive"
	"cicloteca-backend/internal/providers/onedrive"
)

// DefaultStorageHost is the public download host of the blob storage backend
const DefaultStorageHost = "firebasestorage.googleapis.com"

var codeHostingHosts = []string{
	"raw.githubusercontent.com",
	"gist.githubusercontent.com",
	"objects.githubusercontent.com",
}

// AllowList is the set of hosts that refuse cross-origin reads and are
// therefore served through the relay. Subdomains of listed hosts match.
type AllowList struct {
	hosts []string
}

// NewAllowList builds the relay allow-list. storageHosts are the public
// download hosts of the configured storage backend.
func NewAllowList(storageHosts ...string) *AllowList {
	hosts := make([]string, 0, 16)
	hosts = append(hosts, googledrive.Hosts...)
	hosts = append(hosts, dropbox.Hosts...)
	hosts = append(hosts, onedrive.ShareHosts...)
	hosts = append(hosts, onedrive.ContentHosts...)
	hosts = append(hosts, codeHostingHosts...)
	for _, h := range storageHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &AllowList{hosts: hosts}
}

// Contains checks if host is on the allow-list
func (a *AllowList) Contains(host string) bool {
	host = strings.ToLower(host)
	for _, validHost := range a.hosts {
		if host == validHost || strings.HasSuffix(host, "."+validHost) {
			return true
		}
	}
	return false
}

// Relay decides when a URL has to be fetched through the relay origin
type Relay struct {
	origin string
	allow  *AllowList
}

// NewRelay creates a relay decision helper. An empty origin disables the
// relay entirely.
func NewRelay(origin string, allow *AllowList) *Relay {
	if allow == nil {
		allow = NewAllowList(DefaultStorageHost)
	}
	return &Relay{
		origin: strings.TrimRight(strings.TrimSpace(origin), "/"),
		allow:  allow,
	}
}

// Enabled reports whether a relay origin is configured
func (r *Relay) Enabled() bool {
	return r != nil && r.origin != ""
}

// NeedsRelay returns the relay-prefixed URL for raw when the relay is
// configured and raw points at an allow-listed host. URLs that do not
// parse are relayed as well.
func (r *Relay) NeedsRelay(raw string) (string, bool) {
	if !r.Enabled() {
		return "", false
	}

	u, err := url.Parse(raw)
	if err == nil && u.Host != "" && !r.allow.Contains(u.Hostname()) {
		return "", false
	}
	return r.Wrap(raw), true
}

// Wrap prefixes raw with the relay origin unconditionally
func (r *Relay) Wrap(raw string) string {
	return r.origin + "/?u=" + url.QueryEscape(raw)
}
