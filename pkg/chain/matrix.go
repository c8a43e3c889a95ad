package chain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/promptloom/promptloom/internal/logging"
	"github.com/promptloom/promptloom/pkg/domain"
	"github.com/promptloom/promptloom/pkg/ports"
	"github.com/promptloom/promptloom/pkg/template"
)

// MatrixChain turns a prompt matrix plus an ordered agent list into a
// schedulable, resumable sequence of per-(agent, column) invocations, and
// records results positionally into a response matrix of identical shape.
//
// Execution is strictly sequential: columns left to right, agents within a
// column in resolver order (identity by default). The chain exclusively owns
// its step list, context, response matrix and cursor; the prompt matrix and
// agent list are only read, apart from the documented scoped mutation of an
// agent's system context during its own step.
type MatrixChain struct {
	prompts   *domain.PromptMatrix
	agents    []ports.Agent
	context   *template.Context
	responses *domain.ResponseMatrix
	resolver  ports.DependencyResolver
	tracer    ports.Tracer
	logger    *slog.Logger

	steps  []Step
	cursor int
	status domain.ChainStatus
}

// MatrixOption configures a MatrixChain.
type MatrixOption func(*MatrixChain)

// WithContext seeds the chain with an existing context.
func WithContext(ctx *template.Context) MatrixOption {
	return func(c *MatrixChain) {
		c.context = ctx
	}
}

// WithResolver replaces the default identity dependency resolver.
func WithResolver(r ports.DependencyResolver) MatrixOption {
	return func(c *MatrixChain) {
		c.resolver = r
	}
}

// WithTracer attaches an execution tracer.
func WithTracer(t ports.Tracer) MatrixOption {
	return func(c *MatrixChain) {
		c.tracer = t
	}
}

// WithLogger sets a structured logger for the chain.
func WithLogger(logger *slog.Logger) MatrixOption {
	return func(c *MatrixChain) {
		c.logger = logger
	}
}

// NewMatrixChain creates a chain over the given matrix and agents.
// The agent list is index-addressed by matrix row, so its length must equal
// the matrix row count. The response matrix is allocated here, all cells
// unset. Steps are built lazily; call BuildDependencies or Execute.
func NewMatrixChain(prompts *domain.PromptMatrix, agents []ports.Agent, opts ...MatrixOption) (*MatrixChain, error) {
	rows, cols := prompts.Shape()
	if len(agents) != rows {
		return nil, fmt.Errorf("%w: %d agents for %d rows", domain.ErrAgentCount, len(agents), rows)
	}

	c := &MatrixChain{
		prompts:   prompts,
		agents:    agents,
		context:   template.NewContext(nil),
		responses: domain.NewResponseMatrix(rows, cols),
		resolver:  ports.IdentityResolver{},
		tracer:    ports.NopTracer{},
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BuildDependencies synthesizes the step list, column by column, left to
// right. For each column the resolver returns an execution order over agent
// indices; non-empty cells become steps in that order. A resolver failure
// skips that column entirely and building continues with the next one.
// Any previous step list is discarded and the cursor resets to zero.
func (c *MatrixChain) BuildDependencies() {
	rows, cols := c.prompts.Shape()
	steps := make([]Step, 0, rows*cols)

	for i := 0; i < cols; i++ {
		column, err := c.prompts.Column(i)
		if err != nil {
			break
		}

		order, err := c.resolver.ResolveColumn(column)
		if err != nil {
			c.logger.Warn("dependency resolution failed, skipping column", "column", i, "err", err)
			continue
		}
		if !validOrder(order, len(column)) {
			c.logger.Warn("resolver returned invalid order, skipping column", "column", i, "order", order)
			continue
		}

		for _, j := range order {
			if column[j] == "" {
				continue
			}
			steps = append(steps, c.newStep(domain.StepRef{Agent: j, Step: i}, column[j]))
		}
	}

	c.steps = steps
	c.cursor = 0
	c.status = domain.StatusBuilt
	c.tracer.BuildCompleted(len(steps))
	c.logger.Debug("dependencies built", "steps", len(steps))
}

// validOrder checks that every index the resolver produced addresses a row.
func validOrder(order []int, rows int) bool {
	for _, j := range order {
		if j < 0 || j >= rows {
			return false
		}
	}
	return true
}

func (c *MatrixChain) newStep(ref domain.StepRef, prompt string) Step {
	at := ref
	return Step{
		Key:  ref.Label(),
		Ref:  ref.String(),
		Args: []any{ref.Agent, prompt, ref.String()},
		At:   &at,
		Call: func(ctx context.Context, _ []any, _ map[string]any) (any, error) {
			return c.runStep(ctx, ref, prompt)
		},
	}
}

// runStep is the per-step invocation routine: resolve the prompt against the
// current context, dispatch to the agent under a scoped system-context swap,
// then record the result in both the context and the response matrix.
func (c *MatrixChain) runStep(ctx context.Context, ref domain.StepRef, prompt string) (string, error) {
	resolved := c.context.ResolveString(prompt)
	agent := c.agents[ref.Agent]

	// Scoped mutation: the agent sees a context-interpolated version of its
	// own system template for the duration of this call. The deferred restore
	// runs on every exit path, so a failing generation cannot leave the agent
	// corrupted for later steps.
	saved := agent.SystemContext()
	agent.SetSystemContext(c.context.ResolveString(saved))
	defer agent.SetSystemContext(saved)

	out, err := agent.Generate(ctx, resolved)
	if err != nil {
		return "", fmt.Errorf("agent %d column %d: %w", ref.Agent, ref.Step, err)
	}

	c.context.Set(ref.String(), out)
	if err := c.responses.Set(ref.Agent, ref.Step, out); err != nil {
		return "", err
	}
	return out, nil
}

// ExecuteNextStep performs exactly one step's effect and advances the cursor.
// It returns true once the chain is complete; calling it on a completed chain
// is a no-op that keeps returning true. On step failure the cursor stays at
// the failing step, so the next call retries it (at-least-once semantics:
// agent calls should be idempotent or guarded by the caller).
func (c *MatrixChain) ExecuteNextStep(ctx context.Context) (bool, error) {
	if c.cursor >= len(c.steps) {
		c.status = domain.StatusComplete
		return true, nil
	}

	step := c.steps[c.cursor]
	var at domain.StepRef
	if step.At != nil {
		at = *step.At
	}

	c.tracer.StepStarted(at, step.Key)
	start := time.Now()
	_, err := step.Call(ctx, step.Args, step.Kwargs)
	c.tracer.StepCompleted(at, step.Key, time.Since(start), err)
	if err != nil {
		c.logger.Error("step failed", "key", step.Key, "cursor", c.cursor, "err", err)
		return false, err
	}

	c.cursor++
	if c.cursor >= len(c.steps) {
		c.status = domain.StatusComplete
		return true, nil
	}
	c.status = domain.StatusRunning
	return false, nil
}

// Execute runs the chain to completion. With rebuild true (the usual case)
// it first rebuilds the step list, resetting the cursor; with rebuild false
// it resumes from the current cursor, building only if no steps exist yet.
func (c *MatrixChain) Execute(ctx context.Context, rebuild bool) error {
	if rebuild || c.steps == nil {
		c.BuildDependencies()
	}
	for {
		done, err := c.ExecuteNextStep(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Context returns the chain's shared context.
func (c *MatrixChain) Context() *template.Context {
	return c.context
}

// Responses returns the chain's response matrix.
func (c *MatrixChain) Responses() *domain.ResponseMatrix {
	return c.responses
}

// Steps returns a copy of the current step list.
func (c *MatrixChain) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// Cursor returns the index of the next step to execute.
func (c *MatrixChain) Cursor() int {
	return c.cursor
}

// StepCount returns the number of steps in the current build.
func (c *MatrixChain) StepCount() int {
	return len(c.steps)
}

// Status reports where the chain is in its lifecycle. Before the first build
// it reports StatusBuilt with zero steps.
func (c *MatrixChain) Status() domain.ChainStatus {
	if c.status == "" {
		return domain.StatusBuilt
	}
	return c.status
}
