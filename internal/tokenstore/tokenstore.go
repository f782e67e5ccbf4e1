// Package tokenstore persists the bearer token and the tutorial flag.
//
// Every Get goes to the backing storage; nothing is cached in the store
// itself. GetSync is only available when the backend can answer without
// blocking (the web local-storage backend); on the native backend it fails
// with ErrPlatformUnsupported and callers must degrade.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/existflow/sockmatch/internal/storage"
)

// ErrPlatformUnsupported is returned by GetSync when the backend cannot
// serve synchronous reads
var ErrPlatformUnsupported = errors.New("synchronous token access is not supported on this platform")

// Keys names the storage keys used by the store
type Keys struct {
	Token    string
	Tutorial string
}

// DefaultKeys returns the default key names
func DefaultKeys() Keys {
	return Keys{Token: "auth_token", Tutorial: "tutorial_completed"}
}

// Store holds the session token
type Store struct {
	backend storage.Backend
	keys    Keys
}

// New wraps backend. Empty key names fall back to DefaultKeys.
func New(backend storage.Backend, keys Keys) *Store {
	def := DefaultKeys()
	if keys.Token == "" {
		keys.Token = def.Token
	}
	if keys.Tutorial == "" {
		keys.Tutorial = def.Tutorial
	}
	return &Store{backend: backend, keys: keys}
}

// Save persists token, overwriting any prior value
func (s *Store) Save(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("refusing to save empty token")
	}
	if err := s.backend.Set(ctx, s.keys.Token, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Get returns the current token, or "" when none is stored
func (s *Store) Get(ctx context.Context) (string, error) {
	v, ok, err := s.backend.Get(ctx, s.keys.Token)
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	if !ok {
		return "", nil
	}
	return v, nil
}

// GetSync returns the token without blocking, if the backend allows it
func (s *Store) GetSync() (string, error) {
	r, ok := s.backend.(storage.SyncReader)
	if !ok {
		return "", ErrPlatformUnsupported
	}
	v, found, err := r.GetSync(s.keys.Token)
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	if !found {
		return "", nil
	}
	return v, nil
}

// SupportsSync reports whether GetSync can succeed on this backend
func (s *Store) SupportsSync() bool {
	_, ok := s.backend.(storage.SyncReader)
	return ok
}

// Remove clears the token. Removing an absent token is not an error.
func (s *Store) Remove(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.keys.Token); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// TutorialCompleted returns the persisted tutorial flag. It is unrelated to
// authentication and survives logout.
func (s *Store) TutorialCompleted(ctx context.Context) (bool, error) {
	v, ok, err := s.backend.Get(ctx, s.keys.Tutorial)
	if err != nil {
		return false, fmt.Errorf("get tutorial flag: %w", err)
	}
	if !ok {
		return false, nil
	}
	done, err := strconv.ParseBool(v)
	if err != nil {
		return false, nil
	}
	return done, nil
}

// SetTutorialCompleted persists the tutorial flag
func (s *Store) SetTutorialCompleted(ctx context.Context, done bool) error {
	if err := s.backend.Set(ctx, s.keys.Tutorial, strconv.FormatBool(done)); err != nil {
		return fmt.Errorf("set tutorial flag: %w", err)
	}
	return nil
}

// Close releases the backing storage
func (s *Store) Close() error {
	return s.backend.Close()
}
