package repository

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store is the durable key-value storage a cart is persisted in.
// Consumers define this interface, not the backends.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// StorageEvent is raised when another context writes a watched key.
// Value is nil when the key was deleted.
type StorageEvent struct {
	Key    string
	Value  []byte
	Origin string
}

// Watcher delivers storage events written by other contexts. Watch blocks
// until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, key string, fn func(StorageEvent)) error
}
