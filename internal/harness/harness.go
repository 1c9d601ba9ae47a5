package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parleybot/parley/internal/adapter"
	"github.com/parleybot/parley/internal/convo"
	"github.com/parleybot/parley/internal/kind"
	"github.com/parleybot/parley/internal/store"
	"github.com/parleybot/parley/internal/testutil"
)

// Harness executes scenarios against a real engine.
//
// Each scenario runs in isolation: a fresh in-memory database, a fresh
// scripted adapter with handles starting at "h-1", and a fresh engine
// loop torn down before Run returns.
type Harness struct {
	logger *slog.Logger
}

// New creates a harness. A nil logger discards engine output.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Harness{logger: logger}
}

// pushRecord tracks a push step's future so later message steps can
// report which push resolved and with what value.
type pushRecord struct {
	step     int // 1-based step number within the scenario
	answer   *convo.Answer
	reported bool
}

// Run executes a scenario and returns its result. The returned error
// covers harness-level failures (store, engine plumbing); expectation
// failures land in Result.Errors instead.
func (h *Harness) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	defer st.Close()

	scripted := testutil.NewScriptedAdapter()
	eng := convo.New(scripted, st, kind.NewRegistry(), convo.WithMentionMarkers(sc.Markers...))

	runCtx, cancel := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = eng.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-loopDone
	}()

	h.logger.Debug("scenario starting", "name", sc.Name, "steps", len(sc.Steps))

	result := NewResult()
	var pushes []*pushRecord

	for i, step := range sc.Steps {
		stepNum := i + 1
		switch {
		case step.Push != nil:
			if err := h.runPush(ctx, eng, scripted, stepNum, step.Push, result, &pushes); err != nil {
				return nil, err
			}
		case step.Message != nil:
			if err := h.runMessage(ctx, eng, stepNum, step.Message, result, pushes); err != nil {
				return nil, err
			}
		}
	}

	pending, err := eng.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("final pending snapshot: %w", err)
	}
	if sc.FinalPending != nil && len(pending) != *sc.FinalPending {
		result.AddError("final pending: want %d queued contexts, got %d", *sc.FinalPending, len(pending))
	}

	h.logger.Debug("scenario finished", "name", sc.Name, "pass", result.Pass, "errors", len(result.Errors))
	return result, nil
}

func (h *Harness) runPush(
	ctx context.Context,
	eng *convo.Engine,
	scripted *testutil.ScriptedAdapter,
	stepNum int,
	step *PushStep,
	result *Result,
	pushes *[]*pushRecord,
) error {
	answer, err := eng.Push(ctx, convo.PushRequest{
		Prompt:  step.Text,
		User:    adapter.ID(step.User),
		Channel: adapter.ID(step.Channel),
		Kind:    kind.Kind(step.Kind),
		Extra:   step.Extra,
	})
	if err != nil {
		return fmt.Errorf("step %d: push: %w", stepNum, err)
	}
	*pushes = append(*pushes, &pushRecord{step: stepNum, answer: answer})

	deliveries := scripted.Deliveries()
	handle := ""
	if len(deliveries) > 0 {
		handle = string(deliveries[len(deliveries)-1].Handle)
	}

	pending, err := eng.Pending(ctx)
	if err != nil {
		return fmt.Errorf("step %d: pending snapshot: %w", stepNum, err)
	}

	result.Trace = append(result.Trace, TraceEvent{
		Type:    "push",
		User:    step.User,
		Channel: step.Channel,
		Kind:    step.Kind,
		Text:    step.Text,
		Handle:  handle,
		Pending: len(pending),
	})
	return nil
}

func (h *Harness) runMessage(
	ctx context.Context,
	eng *convo.Engine,
	stepNum int,
	step *MessageStep,
	result *Result,
	pushes []*pushRecord,
) error {
	matched, err := eng.Check(ctx, adapter.Envelope{
		User:    step.User,
		Channel: step.Channel,
		Text:    step.Text,
	})
	if err != nil {
		return fmt.Errorf("step %d: check: %w", stepNum, err)
	}

	pending, err := eng.Pending(ctx)
	if err != nil {
		return fmt.Errorf("step %d: pending snapshot: %w", stepNum, err)
	}

	m := matched
	result.Trace = append(result.Trace, TraceEvent{
		Type:    "message",
		User:    step.User,
		Channel: step.Channel,
		Text:    step.Text,
		Matched: &m,
		Pending: len(pending),
	})

	if step.Match != nil && *step.Match != matched {
		result.AddError("step %d: want match=%t, got %t", stepNum, *step.Match, matched)
	}

	if matched {
		rec := newlyResolved(pushes)
		if rec == nil {
			result.AddError("step %d: matched but no push future resolved", stepNum)
			return nil
		}
		value, _ := rec.answer.Value()
		rendered := formatValue(value)
		result.Trace = append(result.Trace, TraceEvent{
			Type:    "resolved",
			PushSeq: rec.step,
			Value:   rendered,
			Pending: len(pending),
		})
		if step.Value != "" && step.Value != rendered {
			result.AddError("step %d: want value %q, got %q", stepNum, step.Value, rendered)
		}
	}
	return nil
}

// newlyResolved finds the first resolved-but-unreported push future.
func newlyResolved(pushes []*pushRecord) *pushRecord {
	for _, rec := range pushes {
		if rec.reported || !rec.answer.Resolved() {
			continue
		}
		rec.reported = true
		return rec
	}
	return nil
}
