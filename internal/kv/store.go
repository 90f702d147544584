// Package kv provides the persistent key-value namespace the stores are
// built on. Values are opaque strings, mirroring browser local storage.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// UpdateFunc computes the next value of a key from its current value.
// Returning an error aborts the update without writing.
type UpdateFunc func(current string, exists bool) (string, error)

// Store is a string key-value namespace.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Update runs fn and writes its result as one critical section with
	// respect to other Update calls on the same key.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Ping(ctx context.Context) error
	Close() error
}
