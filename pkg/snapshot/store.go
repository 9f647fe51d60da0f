package snapshot

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a snapshot key doesn't exist.
var ErrNotFound = errors.New("snapshot: not found")

// ErrTooLarge is returned when a snapshot exceeds the store's size limit.
var ErrTooLarge = errors.New("snapshot: too large")

// Store persists snapshot documents by key.
type Store interface {
	// Save stores data under key, replacing any previous snapshot.
	Save(ctx context.Context, key string, data []byte) error

	// Load returns the snapshot stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
}
