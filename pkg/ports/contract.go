package ports

import (
	"context"
	"testing"
	"time"

	"github.com/promptloom/promptloom/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore
// implementation adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := &domain.ChainState{
			Cursor: 3,
			Status: domain.StatusRunning,
			Context: map[string]any{
				"name":                    "Ada",
				"Agent_0_Step_0_response": "hello",
			},
			Responses: [][]domain.ResponseCell{
				{{Value: "hello", OK: true}, {}},
			},
		}

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Cursor, loaded.Cursor)
		assert.Equal(t, domain.StatusRunning, loaded.Status)
		assert.Equal(t, "Ada", loaded.Context["name"])
		require.Len(t, loaded.Responses, 1)
		assert.True(t, loaded.Responses[0][0].OK)
		assert.False(t, loaded.Responses[0][1].OK)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, &domain.ChainState{Status: domain.StatusBuilt})
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, &domain.ChainState{Status: domain.StatusBuilt})
		_ = store.Save(ctx, id2, &domain.ChainState{Status: domain.StatusBuilt})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
