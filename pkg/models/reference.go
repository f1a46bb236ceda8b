package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReferenceKind tells which shape a file reference arrived in
type ReferenceKind int

const (
	RefNone   ReferenceKind = iota // no reference at all
	RefText                        // plain string: absolute URL or storage path
	RefHandle                      // structured storage handle
)

// Reference identifies a file in one of the shapes library records carry.
// The shape is decided once, when the record is decoded, so that resolution
// code never has to inspect arbitrary values.
type Reference struct {
	Kind     ReferenceKind `json:"-"`
	Text     string        `json:"-"`
	FullPath string        `json:"-"`
	Path     string        `json:"-"`
	Segments []string      `json:"-"`
}

// TextRef builds a reference from a plain string
func TextRef(s string) Reference {
	if s == "" {
		return Reference{}
	}
	return Reference{Kind: RefText, Text: s}
}

// HandleRef builds a structured reference
func HandleRef(fullPath, path string, segments ...string) Reference {
	return Reference{Kind: RefHandle, FullPath: fullPath, Path: path, Segments: segments}
}

// IsZero reports whether the reference carries nothing
func (r Reference) IsZero() bool {
	return r.Kind == RefNone
}

// ReferenceFromValue decodes a loosely typed value (as produced by JSON or
// YAML decoding into any) into a Reference.
//
// Accepted shapes: nil, a string, or a map exposing "fullPath", "path",
// "segments" or a nested "_path": {"segments": [...]}.
func ReferenceFromValue(v any) (Reference, error) {
	switch val := v.(type) {
	case nil:
		return Reference{}, nil
	case string:
		return TextRef(val), nil
	case map[string]any:
		return handleFromMap(val)
	default:
		return Reference{}, fmt.Errorf("unsupported reference type %T", v)
	}
}

func handleFromMap(m map[string]any) (Reference, error) {
	ref := Reference{Kind: RefHandle}
	if s, ok := m["fullPath"].(string); ok {
		ref.FullPath = s
	}
	if s, ok := m["path"].(string); ok {
		ref.Path = s
	}

	segs := m["segments"]
	if nested, ok := m["_path"].(map[string]any); ok && segs == nil {
		segs = nested["segments"]
	}
	if list, ok := segs.([]any); ok {
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return Reference{}, fmt.Errorf("reference segment must be a string, got %T", item)
			}
			ref.Segments = append(ref.Segments, s)
		}
	}

	if ref.FullPath == "" && ref.Path == "" && len(ref.Segments) == 0 {
		return Reference{}, nil
	}
	return ref, nil
}

// UnmarshalJSON accepts a string, an object handle or null
func (r *Reference) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ref, err := ReferenceFromValue(raw)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// MarshalJSON writes the reference back in the shape it was read in
func (r Reference) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RefText:
		return json.Marshal(r.Text)
	case RefHandle:
		m := map[string]any{}
		if r.FullPath != "" {
			m["fullPath"] = r.FullPath
		}
		if r.Path != "" {
			m["path"] = r.Path
		}
		if len(r.Segments) > 0 {
			m["segments"] = r.Segments
		}
		return json.Marshal(m)
	default:
		return []byte("null"), nil
	}
}

// String is used in logs only
func (r Reference) String() string {
	switch r.Kind {
	case RefText:
		return r.Text
	case RefHandle:
		if r.FullPath != "" {
			return r.FullPath
		}
		if r.Path != "" {
			return r.Path
		}
		return strings.Join(r.Segments, "/")
	default:
		return ""
	}
}
