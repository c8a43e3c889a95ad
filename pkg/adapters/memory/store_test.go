package memory_test

import (
	"context"
	"testing"

	"github.com/promptloom/promptloom/pkg/adapters/memory"
	"github.com/promptloom/promptloom/pkg/domain"
	"github.com/promptloom/promptloom/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	state := &domain.ChainState{
		Status:  domain.StatusRunning,
		Context: map[string]any{"k": "v"},
	}
	require.NoError(t, store.Save(ctx, "s1", state))

	// Mutating the original after Save must not affect the stored copy.
	state.Context["k"] = "changed"

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "v", loaded.Context["k"])

	// Mutating a loaded copy must not affect later loads.
	loaded.Context["k"] = "changed again"
	reloaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "v", reloaded.Context["k"])
}
