package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// StepRef is the composite key of one matrix step: which agent row and which
// sequence column it belongs to. It is carried directly on each step, so the
// engine never has to recover indices from strings; the textual form exists
// for context keys, snapshots and API payloads.
type StepRef struct {
	Agent int `json:"agent"`
	Step  int `json:"step"`
}

var refPattern = regexp.MustCompile(`^Agent_(\d+)_Step_(\d+)_response$`)

// String renders the canonical context key for this ref.
// ParseRef(r.String()) always round-trips back to r.
func (r StepRef) String() string {
	return fmt.Sprintf("Agent_%d_Step_%d_response", r.Agent, r.Step)
}

// Label renders the human-readable step key without the response suffix.
func (r StepRef) Label() string {
	return fmt.Sprintf("Agent_%d_Step_%d", r.Agent, r.Step)
}

// ParseRef recovers a StepRef from its canonical textual form.
// The second return value is false when the string does not match the
// expected shape; callers must not attempt a response-matrix write in that
// case, though they may still keep the associated value in the context.
func ParseRef(s string) (StepRef, bool) {
	match := refPattern.FindStringSubmatch(s)
	if match == nil {
		return StepRef{}, false
	}
	agent, err := strconv.Atoi(match[1])
	if err != nil {
		return StepRef{}, false
	}
	step, err := strconv.Atoi(match[2])
	if err != nil {
		return StepRef{}, false
	}
	return StepRef{Agent: agent, Step: step}, true
}
