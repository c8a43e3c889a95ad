package promptloom

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/promptloom/promptloom/pkg/loader"
	"github.com/promptloom/promptloom/internal/logging"
	"github.com/promptloom/promptloom/pkg/adapters/memory"
	"github.com/promptloom/promptloom/pkg/adapters/scripted"
	"github.com/promptloom/promptloom/pkg/chain"
	"github.com/promptloom/promptloom/pkg/ports"
	"github.com/promptloom/promptloom/pkg/session"
)

// Version is the library release identifier.
const Version = "0.3.0"

// Engine is the high-level entry point for the Promptloom library.
// It binds a chain definition to a session store and builds runnable
// matrix chains on demand.
type Engine struct {
	definition *loader.ChainFile
	sessions   *session.Manager
	store      ports.StateStore
	locker     ports.DistributedLocker
	tracer     ports.Tracer
	resolver   ports.DependencyResolver
	logger     *slog.Logger
	Name       string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore injects a custom state store, bypassing the default in-memory one.
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed locking for session access.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithTracer sets an execution tracer for every chain the engine builds.
func WithTracer(tracer ports.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithResolver sets the dependency resolver used when building chains.
func WithResolver(resolver ports.DependencyResolver) Option {
	return func(e *Engine) {
		e.resolver = resolver
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes an Engine from a chain definition file.
// Sessions are held in memory unless WithStore provides a durable backend.
func New(path string, opts ...Option) (*Engine, error) {
	definition, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewFromDefinition(definition, opts...), nil
}

// NewFromDefinition initializes an Engine from an already parsed definition.
func NewFromDefinition(definition *loader.ChainFile, opts ...Option) *Engine {
	eng := &Engine{
		definition: definition,
		logger:     logging.NewNop(),
		Name:       definition.Name,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, sessionOpts...)

	return eng
}

// Definition returns the parsed chain definition.
func (e *Engine) Definition() *loader.ChainFile {
	return e.definition
}

// Sessions returns the session manager backing the engine.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// ChainOptions returns the matrix options the engine applies to every chain.
func (e *Engine) ChainOptions() []chain.MatrixOption {
	var opts []chain.MatrixOption
	if e.tracer != nil {
		opts = append(opts, chain.WithTracer(e.tracer))
	}
	if e.resolver != nil {
		opts = append(opts, chain.WithResolver(e.resolver))
	}
	opts = append(opts, chain.WithLogger(e.logger))
	return opts
}

// NewChain builds a fresh chain from the definition, with dependencies built
// and the cursor at zero. The returned agents are in matrix row order.
func (e *Engine) NewChain() (*chain.MatrixChain, []*scripted.Agent, error) {
	mc, agents, err := e.definition.Build(e.ChainOptions()...)
	if err != nil {
		return nil, nil, err
	}
	mc.BuildDependencies()
	return mc, agents, nil
}

// Resume builds a chain and restores the session's snapshot into it.
// A session that does not exist yet yields a fresh chain.
func (e *Engine) Resume(ctx context.Context, sessionID string) (*chain.MatrixChain, error) {
	state, err := e.sessions.LoadOrStart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	mc, _, err := e.definition.Build(e.ChainOptions()...)
	if err != nil {
		return nil, err
	}
	if err := mc.Restore(state); err != nil {
		return nil, fmt.Errorf("failed to restore session %q: %w", sessionID, err)
	}
	return mc, nil
}

// Run executes every remaining step of the session's chain and persists the
// result. The chain is returned for inspection even when a step fails, so
// callers can read the cursor and partial responses.
func (e *Engine) Run(ctx context.Context, sessionID string) (*chain.MatrixChain, error) {
	mc, err := e.Resume(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	runErr := mc.Execute(ctx, false)
	if saveErr := e.sessions.Save(ctx, sessionID, mc.Snapshot()); saveErr != nil {
		if runErr == nil {
			return mc, saveErr
		}
		e.logger.Error("failed to persist chain after step failure",
			"session_id", sessionID,
			"err", saveErr,
		)
	}
	return mc, runErr
}

// Step executes exactly one step of the session's chain and persists the
// result. It reports whether the chain has no steps left.
func (e *Engine) Step(ctx context.Context, sessionID string) (bool, *chain.MatrixChain, error) {
	mc, err := e.Resume(ctx, sessionID)
	if err != nil {
		return false, nil, err
	}

	done, stepErr := mc.ExecuteNextStep(ctx)
	if saveErr := e.sessions.Save(ctx, sessionID, mc.Snapshot()); saveErr != nil {
		if stepErr == nil {
			return done, mc, saveErr
		}
		e.logger.Error("failed to persist chain after step failure",
			"session_id", sessionID,
			"err", saveErr,
		)
	}
	return done, mc, stepErr
}
