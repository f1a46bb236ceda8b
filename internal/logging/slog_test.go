package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "json")

	WithOperation(logger, "resolve").Debug("cache miss", slog.String(KeyPath, "books/1.pdf"), Err(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, `"operation":"resolve"`)
	assert.Contains(t, out, `"path":"books/1.pdf"`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestErr_NilOmitted(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "text")
	logger.Info("ok", Err(nil))
	assert.NotContains(t, buf.String(), KeyError)
}
