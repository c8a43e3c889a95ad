package ports

import (
	"time"

	"github.com/promptloom/promptloom/pkg/domain"
)

// Tracer observes chain execution. It is passed explicitly to the chain at
// construction; there is no ambient or singleton tracer state anywhere in the
// engine. Implementations must tolerate being called from whichever goroutine
// drives the chain.
type Tracer interface {
	// BuildCompleted fires after a dependency build, with the step count.
	BuildCompleted(steps int)

	// StepStarted fires before a step's agent invocation.
	StepStarted(ref domain.StepRef, key string)

	// StepCompleted fires after a step finishes, successfully or not.
	StepCompleted(ref domain.StepRef, key string, elapsed time.Duration, err error)
}

// NopTracer discards all observations.
type NopTracer struct{}

func (NopTracer) BuildCompleted(int)                                       {}
func (NopTracer) StepStarted(domain.StepRef, string)                       {}
func (NopTracer) StepCompleted(domain.StepRef, string, time.Duration, error) {}
