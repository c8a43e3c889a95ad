// Package scripted provides a deterministic Agent for tests and demo runs.
// It replays a queued script of responses, falling back to echoing the
// prompt once the script is exhausted, and records every prompt it was
// dispatched together with the system context it observed at that moment.
package scripted

import (
	"context"
	"fmt"
	"sync"

	"github.com/promptloom/promptloom/pkg/ports"
)

// Response configures one scripted turn.
type Response struct {
	Text string
	Err  error
}

// Agent is a deterministic ports.Agent implementation.
type Agent struct {
	mu            sync.Mutex
	name          string
	systemContext string
	index         int
	responses     []Response
	prompts       []string
	seenSystem    []string
}

var _ ports.Agent = (*Agent)(nil)

// New creates a scripted agent. With no responses it acts as a pure echo
// agent, returning "[name] prompt" for every call.
func New(name, systemContext string, responses ...Response) *Agent {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &Agent{
		name:          name,
		systemContext: systemContext,
		responses:     cloned,
	}
}

// Texts is a convenience constructor for error-free scripts.
func Texts(texts ...string) []Response {
	out := make([]Response, len(texts))
	for i, text := range texts {
		out[i] = Response{Text: text}
	}
	return out
}

// Generate replays the next scripted response, or echoes the prompt when the
// script is exhausted. The resolved prompt and the system context visible at
// call time are recorded for later inspection.
func (a *Agent) Generate(_ context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.prompts = append(a.prompts, prompt)
	a.seenSystem = append(a.seenSystem, a.systemContext)

	if a.index < len(a.responses) {
		current := a.responses[a.index]
		a.index++
		if current.Err != nil {
			return "", current.Err
		}
		return current.Text, nil
	}
	return fmt.Sprintf("[%s] %s", a.name, prompt), nil
}

// Name returns the agent's label.
func (a *Agent) Name() string {
	return a.name
}

// SystemContext returns the agent's current system template.
func (a *Agent) SystemContext() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.systemContext
}

// SetSystemContext replaces the agent's system template.
func (a *Agent) SetSystemContext(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.systemContext = s
}

// Prompts returns every resolved prompt dispatched to the agent, in order.
func (a *Agent) Prompts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.prompts))
	copy(out, a.prompts)
	return out
}

// SeenSystemContexts returns the system context observed by each Generate
// call, in order. Useful for asserting the scoped interpolation swap.
func (a *Agent) SeenSystemContexts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.seenSystem))
	copy(out, a.seenSystem)
	return out
}
