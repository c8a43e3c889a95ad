package ports

import (
	"context"

	"github.com/promptloom/promptloom/pkg/domain"
)

// StateStore persists chain execution snapshots by session ID.
// This enables durable "stop & resume" stepping: a chain can be advanced one
// step per request, across process restarts, without losing its cursor,
// context or response matrix.
type StateStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.ChainState) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.ChainState, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all known sessions.
	List(ctx context.Context) ([]string, error)
}
