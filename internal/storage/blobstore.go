package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBlobStore stores each key as one file inside a directory. Writes go
// through a temp file and rename under an exclusive file lock so concurrent
// ptrack processes never observe a half-written blob.
type FileBlobStore struct {
	dir string
}

// NewFileBlobStore creates a FileBlobStore rooted at dir. The directory is
// created lazily on the first Put.
func NewFileBlobStore(dir string) *FileBlobStore {
	return &FileBlobStore{dir: dir}
}

// Dir returns the directory blobs are stored in.
func (s *FileBlobStore) Dir() string {
	return s.dir
}

// Path returns the file path backing key.
func (s *FileBlobStore) Path(key string) string {
	return filepath.Join(s.dir, blobFileName(key))
}

// Get returns the blob stored under key, or nil when it does not exist.
func (s *FileBlobStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading blob %q: %w", key, err)
	}
	return data, nil
}

// Put replaces the blob stored under key.
func (s *FileBlobStore) Put(key string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("writing blob %q: creating directory: %w", key, err)
	}

	path := s.Path(key)
	unlock, err := lockFile(path + ".lock")
	if err != nil {
		return fmt.Errorf("writing blob %q: %w", key, err)
	}
	defer func() { _ = unlock() }()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing blob %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing blob %q: renaming temp file: %w", key, err)
	}
	return nil
}

// Delete removes the blob stored under key. Missing blobs are not an error.
func (s *FileBlobStore) Delete(key string) error {
	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob %q: %w", key, err)
	}
	return nil
}

// blobFileName maps a key such as "project-tracker:data:v2" to a portable
// file name ("project-tracker_data_v2.json").
func blobFileName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		name = "blob"
	}
	return name + ".json"
}
