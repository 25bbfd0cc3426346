// Package kv implements the durable on-device string-keyed map everything
// else persists through: the local record list, per-owner cached server
// lists and the last-sync marker each live under a well-known key as a
// JSON-serialized value.
package kv

import "context"

// Repository is a durable key–value map with whole-value semantics: values
// are always read and replaced wholesale, never patched in place.
type Repository interface {
	// Get returns the value for key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all stored pairs.
	List(ctx context.Context) (map[string][]byte, error)

	// Clear removes every stored pair.
	Clear(ctx context.Context) error
}
