package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceFromValue_Shapes(t *testing.T) {
	ref, err := ReferenceFromValue(nil)
	require.NoError(t, err)
	assert.True(t, ref.IsZero())

	ref, err = ReferenceFromValue("books/42")
	require.NoError(t, err)
	assert.Equal(t, RefText, ref.Kind)
	assert.Equal(t, "books/42", ref.Text)

	ref, err = ReferenceFromValue(map[string]any{"fullPath": "books/a.pdf", "path": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, RefHandle, ref.Kind)
	assert.Equal(t, "books/a.pdf", ref.FullPath)

	ref, err = ReferenceFromValue(map[string]any{
		"_path": map[string]any{"segments": []any{"images", "cover"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"images", "cover"}, ref.Segments)

	ref, err = ReferenceFromValue(map[string]any{"other": 1})
	require.NoError(t, err)
	assert.True(t, ref.IsZero())

	_, err = ReferenceFromValue(42)
	assert.Error(t, err)
}

func TestReference_JSON(t *testing.T) {
	var entry LibraryEntry
	raw := `{"id":"1","title":"Guía","cover":{"path":"images/1"},"file":"https://example.org/a.pdf"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))

	assert.Equal(t, RefHandle, entry.Cover.Kind)
	assert.Equal(t, "images/1", entry.Cover.Path)
	assert.Equal(t, RefText, entry.File.Kind)

	out, err := json.Marshal(entry.Cover)
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"images/1"}`, string(out))

	var empty Reference
	require.NoError(t, json.Unmarshal([]byte("null"), &empty))
	assert.True(t, empty.IsZero())
}
