package domain

// ChainStatus describes where a chain is in its execution lifecycle.
type ChainStatus string

const (
	// StatusBuilt means the step list exists and the cursor sits at zero.
	StatusBuilt ChainStatus = "built"
	// StatusRunning means at least one step has executed and more remain.
	StatusRunning ChainStatus = "running"
	// StatusComplete means the cursor has reached the end of the step list.
	// A rebuild returns the chain to StatusBuilt.
	StatusComplete ChainStatus = "complete"
)

// ChainState is the durable snapshot of a matrix chain's execution: the
// cursor, the accumulated context and the response cells. The step list is
// deliberately absent; steps bind callables, which do not serialize, and are
// rebuilt deterministically from the prompt matrix on restore.
type ChainState struct {
	Cursor    int              `json:"cursor"`
	Status    ChainStatus      `json:"status"`
	Context   map[string]any   `json:"context"`
	Responses [][]ResponseCell `json:"responses"`
}
