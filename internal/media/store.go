// Package media stores uploaded files under a single uploads directory.
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store keeps media files on the local filesystem. Stored paths are
// relative to the uploads root so a database moved between machines
// still resolves its files.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Save writes the content under a fresh uuid-based name, keeping the
// original extension, and returns the stored path.
func (s *Store) Save(r io.Reader, originalName string) (string, error) {
	name := uuid.NewString() + filepath.Ext(originalName)
	full := filepath.Join(s.root, name)

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	return name, nil
}

func (s *Store) Exists(path string) bool {
	_, ok := s.Resolve(path)
	return ok
}

// Resolve maps a stored path to an absolute filesystem path. Paths
// recorded by older backups may be absolute or carry directories that no
// longer exist, so the bare filename under the uploads root is tried as
// a fallback.
func (s *Store) Resolve(path string) (string, bool) {
	if path == "" {
		return "", false
	}

	candidates := []string{path}
	if !filepath.IsAbs(path) {
		candidates = append(candidates, filepath.Join(s.root, path))
	}
	if base := filepath.Base(path); base != path {
		candidates = append(candidates, filepath.Join(s.root, base))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

// Delete removes the backing file. A path that no longer resolves is
// treated as already deleted.
func (s *Store) Delete(path string) error {
	full, ok := s.Resolve(path)
	if !ok {
		return nil
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("failed to delete media file: %w", err)
	}
	return nil
}
