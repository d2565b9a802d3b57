package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore is a Store kept in a JSON file. Changes stay in memory until
// Flush writes them out.
type FileStore struct {
	*MemoryStore
	path string
}

// OpenFileStore reads the store at path. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	fsStore := &FileStore{MemoryStore: NewMemoryStore(), path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fsStore, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	if err := json.Unmarshal(data, &fsStore.values); err != nil {
		return nil, fmt.Errorf("parsing session file %s: %w", path, err)
	}
	if fsStore.values == nil {
		fsStore.values = make(map[string]string)
	}
	return fsStore, nil
}

// Flush writes the store to disk, readable only by the owner since it holds
// a bearer token.
func (f *FileStore) Flush() error {
	f.mu.RLock()
	data, err := json.MarshalIndent(f.values, "", "  ")
	f.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

var _ Store = (*FileStore)(nil)
