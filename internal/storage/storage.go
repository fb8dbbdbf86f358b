package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a missing key
var ErrNotFound = errors.New("storage: key not found")

// Storage is the interface for object storage backing the event journal
type Storage interface {
	// Put stores data with the given key
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves data by key
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes data by key
	Delete(ctx context.Context, key string) error

	// Exists checks if key exists
	Exists(ctx context.Context, key string) (bool, error)

	// List lists all keys with the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Name identifies the backend, e.g. "memory:test" or "oss:bucket"
	Name() string
}
