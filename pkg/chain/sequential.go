package chain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/promptloom/promptloom/internal/logging"
	"github.com/promptloom/promptloom/pkg/template"
)

// SequentialChain executes steps front to back, resolving each step's args
// and kwargs against the shared context and storing ref-carrying results
// back into it. No dependency ordering happens here; steps run exactly in
// insertion order.
type SequentialChain struct {
	steps   []Step
	context *template.Context
	logger  *slog.Logger
}

// SequentialOption configures a SequentialChain.
type SequentialOption func(*SequentialChain)

// WithSequentialContext seeds the chain with an existing context.
func WithSequentialContext(ctx *template.Context) SequentialOption {
	return func(c *SequentialChain) {
		c.context = ctx
	}
}

// WithSequentialLogger sets a structured logger for the chain.
func WithSequentialLogger(logger *slog.Logger) SequentialOption {
	return func(c *SequentialChain) {
		c.logger = logger
	}
}

// NewSequentialChain creates an empty chain with a fresh context.
func NewSequentialChain(opts ...SequentialOption) *SequentialChain {
	c := &SequentialChain{
		context: template.NewContext(nil),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddStep appends a step to the end of the chain.
func (c *SequentialChain) AddStep(step Step) {
	c.steps = append(c.steps, step)
}

// Context returns the chain's shared context.
func (c *SequentialChain) Context() *template.Context {
	return c.context
}

// Execute runs every step in order and returns the final context.
// A step failure stops execution and propagates.
func (c *SequentialChain) Execute(ctx context.Context) (*template.Context, error) {
	for _, step := range c.steps {
		args := make([]any, len(step.Args))
		for i, a := range step.Args {
			args[i] = c.context.ResolvePlaceholders(a)
		}
		var kwargs map[string]any
		if step.Kwargs != nil {
			kwargs = c.context.ResolvePlaceholders(step.Kwargs).(map[string]any)
		}

		c.logger.Debug("executing step", "key", step.Key)
		result, err := step.Call(ctx, args, kwargs)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Key, err)
		}

		if step.Ref != "" {
			key, ok := c.context.ResolveRef(step.Ref).(string)
			if !ok || key == "" {
				c.logger.Warn("step ref did not resolve to a key", "key", step.Key, "ref", step.Ref)
				continue
			}
			c.context.Set(key, result)
		}
	}
	return c.context, nil
}
