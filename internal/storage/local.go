package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const localStorageName = "localstorage.json"

// LocalStore is the web backend: a single JSON document on disk. Every
// read loads the file and every write is a read-modify-write followed by
// an atomic rename, so separate processes sharing the directory see each
// other's changes. Reads are local file access only and are offered
// synchronously.
type LocalStore struct {
	path   string
	mu     sync.Mutex
	closed bool
}

// OpenLocal opens the local storage file in dir, creating it lazily
func OpenLocal(dir string) (*LocalStore, error) {
	s := &LocalStore{path: filepath.Join(dir, localStorageName)}

	// fail early on an unreadable document
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get implements Backend
func (s *LocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return s.GetSync(key)
}

// GetSync implements SyncReader
func (s *LocalStore) GetSync(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, ErrClosed
	}
	items, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

// Set implements Backend
func (s *LocalStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	items, err := s.load()
	if err != nil {
		return err
	}
	items[key] = value
	return s.write(items)
}

// Delete implements Backend
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	items, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)
	return s.write(items)
}

// load reads the current document. A missing file is an empty store.
func (s *LocalStore) load() (map[string]string, error) {
	items := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local storage: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to parse local storage: %w", err)
		}
	}
	return items, nil
}

// write replaces the document atomically. Caller holds s.mu.
func (s *LocalStore) write(items map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, localStorageName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write local storage: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write local storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write local storage: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write local storage: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write local storage: %w", err)
	}
	return nil
}

// Close marks the store closed. Data is already on disk.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
