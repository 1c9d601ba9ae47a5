package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the serialized form compared against golden files.
type Snapshot struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
}

// RunWithGolden executes a scenario, fails the test on any expectation
// error, and compares the trace against testdata/<name>.golden.
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
func (h *Harness) RunWithGolden(t *testing.T, sc *Scenario) {
	t.Helper()

	result, err := h.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}
	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", sc.Name, msg)
	}

	snap := Snapshot{Scenario: sc.Name, Trace: result.Trace}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	data = append(data, '\n')

	g := goldie.New(t)
	g.Assert(t, sc.Name, data)
}
