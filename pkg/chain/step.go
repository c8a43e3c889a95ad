package chain

import (
	"context"

	"github.com/promptloom/promptloom/pkg/domain"
)

// Callable is the invocation signature bound into a Step: positional args,
// keyword args, one result. Implementations should treat ctx as the only
// cancellation mechanism; the engine itself never times a step out.
type Callable func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Step is one atomic bound invocation, produced during chain build and
// consumed once during execution. Key is unique within one build.
type Step struct {
	// Key is the step's unique label within its chain.
	Key string

	// Call is the bound invocation target.
	Call Callable

	// Args are positional arguments, resolved against the chain context
	// before invocation (sequential chains only; matrix steps resolve their
	// prompt inside the invocation routine instead).
	Args []any

	// Kwargs are keyword arguments, resolved the same way as Args.
	Kwargs map[string]any

	// Ref names the context key the result is stored under. It may carry the
	// storage sigil ("$key"); empty means the result is discarded.
	Ref string

	// At carries the typed matrix position for steps synthesized from a
	// prompt matrix, so response-matrix writes never depend on re-parsing
	// Ref. Nil for steps that are not matrix cells.
	At *domain.StepRef
}
