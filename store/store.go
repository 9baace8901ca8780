// Package store is the file store the generator reads and writes through.
// Everything goes through an afero.Fs so tests can run against memory.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// Store wraps a file system with the handful of operations the pipeline needs.
type Store struct {
	fs afero.Fs
}

// New returns a store over fs.
func New(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// OS returns a store over the real file system.
func OS() *Store {
	return New(afero.NewOsFs())
}

// Memory returns a store over an empty in-memory file system.
func Memory() *Store {
	return New(afero.NewMemMapFs())
}

// Fs exposes the underlying file system.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Exists reports whether path exists.
func (s *Store) Exists(path string) bool {
	ok, err := afero.Exists(s.fs, path)
	return err == nil && ok
}

// Read returns the contents of path.
func (s *Store) Read(path string) (string, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// Write replaces path with text, creating parent directories as needed.
func (s *Store) Write(path, text string) error {
	if err := s.MkdirAll(filepath.Dir(path)); err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ListMatching returns the paths matching a glob pattern in lexical order.
func (s *Store) ListMatching(pattern string) ([]string, error) {
	matches, err := afero.Glob(s.fs, pattern)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// MkdirAll creates path and any missing parents.
func (s *Store) MkdirAll(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := s.fs.MkdirAll(path, os.ModePerm); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}
