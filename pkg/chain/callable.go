package chain

import (
	"context"
	"fmt"
)

type boundCall struct {
	fn     Callable
	args   []any
	kwargs map[string]any
}

// CallableChain is a fixed linear pipeline: each callable's return value is
// prepended as the first positional argument of the next call. It carries no
// shared context and no templating; use SequentialChain when steps need to
// exchange named state.
type CallableChain struct {
	calls []boundCall
}

// NewCallableChain creates an empty pipeline.
func NewCallableChain() *CallableChain {
	return &CallableChain{}
}

// AddCallable appends a callable with its declared args and kwargs.
func (c *CallableChain) AddCallable(fn Callable, args []any, kwargs map[string]any) {
	c.calls = append(c.calls, boundCall{fn: fn, args: args, kwargs: kwargs})
}

// Len returns the number of callables in the pipeline.
func (c *CallableChain) Len() int {
	return len(c.calls)
}

// Invoke runs the pipeline. The first callable receives the initial args
// followed by its own declared args; every later callable receives the prior
// result first, then its declared args. The final result is returned.
func (c *CallableChain) Invoke(ctx context.Context, initial ...any) (any, error) {
	var result any
	for i, call := range c.calls {
		var args []any
		if i == 0 {
			args = append(args, initial...)
		} else {
			args = append(args, result)
		}
		args = append(args, call.args...)

		out, err := call.fn(ctx, args, call.kwargs)
		if err != nil {
			return nil, fmt.Errorf("callable %d: %w", i, err)
		}
		result = out
	}
	return result, nil
}

// Compose concatenates two pipelines into a new one, preserving order:
// c's callables first, then other's. Neither operand is modified.
func (c *CallableChain) Compose(other *CallableChain) *CallableChain {
	out := &CallableChain{calls: make([]boundCall, 0, len(c.calls)+len(other.calls))}
	out.calls = append(out.calls, c.calls...)
	out.calls = append(out.calls, other.calls...)
	return out
}
