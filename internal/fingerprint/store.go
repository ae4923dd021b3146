package fingerprint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Store maps relative file paths to the digest their content had after
// the last successful commit. It is loaded once at run start, mutated
// only by the commit phase, and saved at most once at run end.
type Store struct {
	entries map[string]Digest
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]Digest)}
}

// Load reads a store from path. A missing file yields an empty store.
// A malformed file is logged as a warning and also yields an empty
// store; it must never abort a run.
func Load(path string) *Store {
	s := NewStore()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("fingerprint store unreadable, starting empty", "path", path, "error", err)
		}
		return s
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		slog.Warn("fingerprint store malformed, starting empty", "path", path, "error", err)
		s.entries = make(map[string]Digest)
	}
	return s
}

// ShouldSkip reports whether relPath was already processed with exactly
// the given content digest.
func (s *Store) ShouldSkip(relPath string, d Digest) bool {
	stored, ok := s.entries[relPath]
	return ok && stored == d
}

// Update records the post-commit digest for relPath.
func (s *Store) Update(relPath string, d Digest) {
	s.entries[relPath] = d
}

// Merge copies all entries from other into s, overwriting duplicates.
func (s *Store) Merge(other *Store) {
	for rel, d := range other.entries {
		s.entries[rel] = d
	}
}

// Len returns the number of recorded paths.
func (s *Store) Len() int {
	return len(s.entries)
}

// Paths returns the recorded relative paths in sorted order.
func (s *Store) Paths() []string {
	paths := make([]string, 0, len(s.entries))
	for rel := range s.entries {
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	return paths
}

// Save writes the store to path atomically (temp file + rename), as a
// human-readable JSON object: 2-space indent, UTF-8, no HTML escaping.
func (s *Store) Save(path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.entries); err != nil {
		return fmt.Errorf("encode fingerprint store: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write fingerprint store: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename fingerprint store: %w", err)
	}
	return nil
}
