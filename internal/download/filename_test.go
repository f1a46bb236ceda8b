package download

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuessFileName(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		url         string
		want        string
	}{
		{
			name:        "extended filename wins",
			disposition: `attachment; filename="plain.pdf"; filename*=UTF-8''gu%C3%ADa%20ciclista.pdf`,
			url:         "https://host/x/other.pdf",
			want:        "guía ciclista.pdf",
		},
		{
			name:        "plain quoted filename",
			disposition: `attachment; filename="manual.pdf"`,
			url:         "https://host/x/other.pdf",
			want:        "manual.pdf",
		},
		{
			name:        "plain unquoted filename",
			disposition: `inline; filename=mapa.png`,
			url:         "https://host/x",
			want:        "mapa.png",
		},
		{
			name: "url path segment",
			url:  "https://host/files/rutas.gpx?token=abc",
			want: "rutas.gpx",
		},
		{
			name: "response-content-disposition query",
			url:  "https://storage.example/o/abc?response-content-disposition=" + "attachment%3B%20filename%3D%22libro.pdf%22",
			want: "libro.pdf",
		},
		{
			name: "fallback",
			url:  "https://host/download",
			want: "fallback.bin",
		},
		{
			name: "unparseable url",
			url:  "://bad",
			want: "fallback.bin",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.disposition != "" {
				header.Set("Content-Disposition", tt.disposition)
			}
			assert.Equal(t, tt.want, GuessFileName(header, tt.url, "fallback.bin"))
		})
	}
}

func TestGuessFileName_NilHeader(t *testing.T) {
	assert.Equal(t, "a.pdf", GuessFileName(nil, "https://host/a.pdf", "x"))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeFileName("../../etc/passwd"))
	assert.Equal(t, "evil.pdf", SanitizeFileName(`..\..\evil.pdf`))
	assert.Equal(t, "a_b.pdf", SanitizeFileName("a:b.pdf"))
	assert.Equal(t, "download", SanitizeFileName(".."))
	assert.Equal(t, "guía ciclista.pdf", SanitizeFileName("guía ciclista.pdf"))
}
