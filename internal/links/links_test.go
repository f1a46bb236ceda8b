package links

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteToDirectLink(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drive view link",
			in:   "https://drive.google.com/file/d/ABC123/view?usp=sharing",
			want: "https://drive.google.com/uc?export=download&id=ABC123",
		},
		{
			name: "dropbox preview link",
			in:   "https://www.dropbox.com/s/abc/guia.pdf?dl=0",
			want: "https://dl.dropboxusercontent.com/s/abc/guia.pdf",
		},
		{
			name: "unknown host passes through",
			in:   "https://example.org/files/guia.pdf?dl=0",
			want: "https://example.org/files/guia.pdf?dl=0",
		},
		{
			name: "drive folder passes through",
			in:   "https://drive.google.com/drive/folders/FOLDER",
			want: "https://drive.google.com/drive/folders/FOLDER",
		},
		{
			name: "not a url",
			in:   "books/42.pdf",
			want: "books/42.pdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteToDirectLink(tt.in))
		})
	}
}

func TestRewriteToDirectLink_Idempotent(t *testing.T) {
	inputs := []string{
		"https://drive.google.com/file/d/ABC123/view?usp=sharing",
		"https://drive.google.com/uc?export=download&id=ABC123",
		"https://www.dropbox.com/s/abc/guia.pdf?dl=0",
		"https://dropbox.com/scl/fi/xyz/mapa.pdf?rlkey=k&dl=1",
		"https://dl.dropboxusercontent.com/s/abc/guia.pdf",
		"https://1drv.ms/b/s!AkLmNoP",
		"https://example.org/x",
	}
	for _, in := range inputs {
		once := RewriteToDirectLink(in)
		assert.Equal(t, once, RewriteToDirectLink(once), in)
	}
}

func TestIsKnownHost(t *testing.T) {
	assert.True(t, IsKnownHost("drive.google.com"))
	assert.True(t, IsKnownHost("docs.google.com"))
	assert.True(t, IsKnownHost("googledrive.com"))
	assert.True(t, IsKnownHost("www.dropbox.com"))
	assert.True(t, IsKnownHost("dl.dropboxusercontent.com"))
	assert.False(t, IsKnownHost("example.org"))
}

func TestRelay_NeedsRelay(t *testing.T) {
	relay := NewRelay("https://relay.example.org/", NewAllowList(DefaultStorageHost))
	require.True(t, relay.Enabled())

	raw := "https://drive.google.com/uc?export=download&id=ABC"
	got, ok := relay.NeedsRelay(raw)
	require.True(t, ok)
	assert.Equal(t, "https://relay.example.org/?u="+url.QueryEscape(raw), got)

	_, ok = relay.NeedsRelay("https://firebasestorage.googleapis.com/v0/b/bucket/o/a.pdf")
	assert.True(t, ok)

	_, ok = relay.NeedsRelay("https://raw.githubusercontent.com/org/repo/main/a.pdf")
	assert.True(t, ok)

	_, ok = relay.NeedsRelay("https://example.org/a.pdf")
	assert.False(t, ok)

	_, ok = relay.NeedsRelay("http://[::1]:namedport")
	assert.True(t, ok, "unparseable URLs are relayed")
}

func TestRelay_Disabled(t *testing.T) {
	relay := NewRelay("", nil)
	assert.False(t, relay.Enabled())

	_, ok := relay.NeedsRelay("https://drive.google.com/uc?id=ABC")
	assert.False(t, ok)

	var nilRelay *Relay
	_, ok = nilRelay.NeedsRelay("https://drive.google.com/uc?id=ABC")
	assert.False(t, ok)
}

func TestAllowList_ExtraStorageHost(t *testing.T) {
	allow := NewAllowList("files.cicloteca.example", " ")
	assert.True(t, allow.Contains("files.cicloteca.example"))
	assert.True(t, allow.Contains("cdn.files.cicloteca.example"))
	assert.False(t, allow.Contains("cicloteca.example"))
}
