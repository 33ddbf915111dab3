// Package storage defines the interface for raw message stores.
package storage

import "context"

// Store retrieves raw inbound messages by key.
type Store interface {
	// Fetch returns the full content stored under key. A missing key or
	// an access failure is returned as an error.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Name returns the human-readable name of this store.
	Name() string
}
