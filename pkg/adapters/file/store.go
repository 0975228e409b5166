package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/formdraft/pkg/domain"
)

const ext = ".kv"

// Store implements ports.KVStore using the local filesystem.
// Each key is a file in BasePath; the file name is the query-escaped key.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".formdraft/drafts".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".formdraft", "drafts")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.BasePath, url.QueryEscape(key)+ext)
}

// Get reads the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to read key file: %w", err)
	}
	return string(data), nil
}

// SetMany writes every entry to a synced temp file first and only then
// renames them into place, which keeps the window for a half-applied batch small.
func (s *Store) SetMany(ctx context.Context, entries map[string]string) error {
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure draft directory: %w", err)
	}

	type pending struct{ tmp, dest string }
	staged := make([]pending, 0, len(entries))
	defer func() {
		for _, p := range staged {
			_ = os.Remove(p.tmp) // No-op once renamed
		}
	}()

	for key, value := range entries {
		if key == "" {
			return fmt.Errorf("key cannot be empty")
		}
		tmp, err := writeTemp(s.BasePath, []byte(value))
		if err != nil {
			return err
		}
		staged = append(staged, pending{tmp: tmp, dest: s.path(key)})
	}

	for _, p := range staged {
		// os.Rename replaces dest atomically on POSIX systems
		if err := os.Rename(p.tmp, p.dest); err != nil {
			return fmt.Errorf("failed to rename temp file into place: %w", err)
		}
	}
	return nil
}

func writeTemp(dir string, data []byte) (string, error) {
	// Same directory as the destination, rename must not cross filesystems
	f, err := os.CreateTemp(dir, "tmp-*"+ext+".partial")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return path, nil
}

// Delete removes the key files.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		err := os.Remove(s.path(key))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to delete key file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Keys lists the stored keys with the given prefix, sorted.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	keys := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		key, err := url.QueryUnescape(strings.TrimSuffix(name, ext))
		if err != nil {
			continue // Not written by us
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
