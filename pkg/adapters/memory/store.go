// Package memory provides an in-process ports.StateStore, mainly for tests
// and ephemeral CLI sessions.
package memory

import (
	"context"
	"sync"

	"github.com/promptloom/promptloom/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.ChainState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.ChainState),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.ChainState) error {
	copied := cloneState(state)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.ChainState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	// Copy on read so callers can't mutate stored state through the pointer.
	return cloneState(state), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the IDs of all stored sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

// cloneState deep-copies the snapshot the way serialization would, ensuring
// isolation between the store and its callers.
func cloneState(state *domain.ChainState) *domain.ChainState {
	copied := *state
	copied.Context = make(map[string]any, len(state.Context))
	for k, v := range state.Context {
		copied.Context[k] = v
	}
	if state.Responses != nil {
		copied.Responses = make([][]domain.ResponseCell, len(state.Responses))
		for i, row := range state.Responses {
			copied.Responses[i] = make([]domain.ResponseCell, len(row))
			copy(copied.Responses[i], row)
		}
	}
	return &copied
}
