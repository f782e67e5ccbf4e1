// Package storage provides the persisted key/value backends behind the
// token store. Values are small strings (a bearer token, a flag).
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed backend
var ErrClosed = errors.New("storage: backend closed")

// Backend is a persisted key/value store. All operations may block on I/O.
type Backend interface {
	// Get returns the value and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites any previous value
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op for missing keys
	Delete(ctx context.Context, key string) error
	Close() error
}

// SyncReader is implemented by backends whose reads are a plain local file
// or browser-storage lookup and can be used from synchronous render paths.
type SyncReader interface {
	GetSync(key string) (string, bool, error)
}

// Kind names a backend implementation
type Kind string

const (
	KindNative Kind = "native"
	KindWeb    Kind = "web"
	KindMemory Kind = "memory"
)

// Open opens the backend of the given kind rooted at dir
func Open(kind Kind, dir string) (Backend, error) {
	switch kind {
	case KindNative:
		return OpenSecure(dir)
	case KindWeb:
		return OpenLocal(dir)
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", kind)
	}
}
