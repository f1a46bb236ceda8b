package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists entries as a JSON object in a single file so they
// survive restarts when no database is configured
type FileStore struct {
	path    string
	entries map[string]Entry
	loaded  bool
	mutex   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) load() error {
	if f.loaded {
		return nil
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.entries = make(map[string]Entry)
		f.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache file: %w", err)
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		// a corrupt cache file is dropped, not fatal
		entries = make(map[string]Entry)
	}
	f.entries = entries
	f.loaded = true
	return nil
}

func (f *FileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if err := f.load(); err != nil {
		return Entry{}, false, err
	}
	entry, exists := f.entries[key]
	return entry, exists, nil
}

func (f *FileStore) Set(_ context.Context, entry Entry) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if err := f.load(); err != nil {
		return err
	}
	previous, had := f.entries[entry.Path]
	f.entries[entry.Path] = entry

	if err := f.flush(); err != nil {
		if had {
			f.entries[entry.Path] = previous
		} else {
			delete(f.entries, entry.Path)
		}
		return err
	}
	return nil
}

// flush writes the whole map through a temp file and a rename
func (f *FileStore) flush() error {
	data, err := json.Marshal(f.entries)
	if err != nil {
		return fmt.Errorf("encode cache file: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".urlcache-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
