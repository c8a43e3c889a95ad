package chain

import (
	"fmt"

	"github.com/promptloom/promptloom/pkg/domain"
)

// Snapshot captures the chain's resumable execution state: cursor, status,
// context pairs and response cells. Steps are not captured; they bind
// callables and are rebuilt deterministically from the prompt matrix.
func (c *MatrixChain) Snapshot() *domain.ChainState {
	return &domain.ChainState{
		Cursor:    c.cursor,
		Status:    c.Status(),
		Context:   c.context.Snapshot(),
		Responses: c.responses.Snapshot(),
	}
}

// Restore rebuilds the step list if needed and applies a previously taken
// snapshot. The snapshot must come from a chain with the same prompt matrix
// shape; its cursor must address a valid position in the rebuilt step list.
//
// Snapshots that carry context but no response cells (older producers, or
// hand-assembled states posted over an API) have their response matrix
// rehydrated from context keys that parse as step refs. Keys that do not
// parse, or that address cells outside the matrix, stay context-only.
func (c *MatrixChain) Restore(state *domain.ChainState) error {
	if c.steps == nil {
		c.BuildDependencies()
	}
	if state.Cursor < 0 || state.Cursor > len(c.steps) {
		return fmt.Errorf("snapshot cursor %d outside [0, %d]", state.Cursor, len(c.steps))
	}

	c.context.Update(state.Context)

	if state.Responses != nil {
		if err := c.responses.Restore(state.Responses); err != nil {
			return fmt.Errorf("restore responses: %w", err)
		}
	} else {
		for key, value := range state.Context {
			ref, ok := domain.ParseRef(key)
			if !ok {
				continue
			}
			text, isString := value.(string)
			if !isString {
				continue
			}
			// Out-of-shape refs are skipped; the value is already retained
			// in the context above.
			_ = c.responses.Set(ref.Agent, ref.Step, text)
		}
	}

	c.cursor = state.Cursor
	switch {
	case state.Status != "":
		c.status = state.Status
	case c.cursor >= len(c.steps) && len(c.steps) > 0:
		c.status = domain.StatusComplete
	case c.cursor > 0:
		c.status = domain.StatusRunning
	default:
		c.status = domain.StatusBuilt
	}
	return nil
}
