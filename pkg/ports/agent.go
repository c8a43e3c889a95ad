package ports

import "context"

// Agent is the generation surface the chain dispatches steps to.
// Implementations wrap whatever actually produces text (an LLM client, a
// subprocess, a script); the engine only ever sees resolved prompt strings.
//
// SystemContext and SetSystemContext expose the agent's system template as a
// mutable field. During a step the chain temporarily replaces it with a
// context-interpolated copy of itself and restores the original on every exit
// path, including failures. Implementations must make the pair safe for that
// save/swap/restore sequence.
type Agent interface {
	// Generate produces response text for a fully resolved prompt.
	// The call is treated as opaque and potentially slow; cancellation is the
	// implementation's responsibility via ctx.
	Generate(ctx context.Context, prompt string) (string, error)

	// SystemContext returns the agent's current system template.
	SystemContext() string

	// SetSystemContext replaces the agent's system template.
	SetSystemContext(s string)
}
