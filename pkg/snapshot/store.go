// Package snapshot persists widget values across sessions so a client
// reconnect can seed the registry with its previous state.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when no snapshot exists for a session.
var ErrNotFound = errors.New("snapshot: not found")

// Store saves and restores the value map of one session, keyed by
// widget identity. Values are opaque JSON.
type Store interface {
	Save(ctx context.Context, sessionID string, values map[string]json.RawMessage) error
	Load(ctx context.Context, sessionID string) (map[string]json.RawMessage, error)
	Delete(ctx context.Context, sessionID string) error
}
