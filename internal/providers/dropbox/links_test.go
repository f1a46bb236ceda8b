package dropbox

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectLink(t *testing.T) {
	u, err := url.Parse("https://www.dropbox.com/s/abc123/guia.pdf?dl=0")
	require.NoError(t, err)

	got, ok := DirectLink(u)
	require.True(t, ok)
	assert.Equal(t, "https://dl.dropboxusercontent.com/s/abc123/guia.pdf", got)

	u, err = url.Parse("https://www.dropbox.com/scl/fi/xyz/mapa.pdf?rlkey=k1&dl=0")
	require.NoError(t, err)
	got, ok = DirectLink(u)
	require.True(t, ok)
	assert.Equal(t, "https://dl.dropboxusercontent.com/scl/fi/xyz/mapa.pdf?rlkey=k1", got)

	u, err = url.Parse(got)
	require.NoError(t, err)
	_, ok = DirectLink(u)
	assert.False(t, ok, "content host links are already direct")
}

func TestIsHost(t *testing.T) {
	assert.True(t, IsHost("www.dropbox.com"))
	assert.True(t, IsHost("dropbox.com"))
	assert.True(t, IsHost("DL.dropboxusercontent.com"))
	assert.False(t, IsHost("dropbox.example.com"))
}
