package harness

import (
	"fmt"
	"strconv"

	"github.com/parleybot/parley/internal/kind"
)

// TraceEvent is one entry in a scenario's execution trace.
//
// Event types:
//   - "push": a prompt was delivered and queued
//   - "message": an envelope was offered to the engine
//   - "resolved": a push's future resolved (follows its message event)
//
// Pending is the queue length after the event; it appears on every
// event so the trace doubles as a queue-occupancy timeline.
type TraceEvent struct {
	Type    string `json:"type"`
	User    string `json:"user,omitempty"`
	Channel string `json:"channel,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Text    string `json:"text,omitempty"`
	Handle  string `json:"handle,omitempty"`
	Matched *bool  `json:"matched,omitempty"`
	PushSeq int    `json:"push_seq,omitempty"`
	Value   string `json:"value,omitempty"`
	Pending int    `json:"pending"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation in the scenario held.
	Pass bool `json:"pass"`

	// Trace contains the events in execution order; compared against
	// golden files.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}}
}

// AddError records an expectation failure and fails the result.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// formatValue renders a parsed reply value for traces and assertions.
func formatValue(v kind.Value) string {
	switch val := v.(type) {
	case kind.Int:
		return strconv.FormatInt(int64(val), 10)
	case kind.Bool:
		return strconv.FormatBool(bool(val))
	case kind.String:
		return string(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}
