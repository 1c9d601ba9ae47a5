// Package testutil provides deterministic doubles for engine tests:
// a scripted messaging adapter with failure injection and predictable
// delivery handles.
package testutil

import (
	"context"
	"sync"

	"github.com/parleybot/parley/internal/adapter"
)

// Delivery records one prompt the scripted adapter delivered.
type Delivery struct {
	Handle  adapter.Handle
	User    string
	Channel string
	Text    string
}

// ScriptedAdapter implements adapter.Adapter for tests. Handles are
// sequential ("h-1", "h-2", ...) so traces and golden files are
// byte-stable across runs.
//
// Failure injection: set ReplyErr / RemoveErr to make the next calls
// fail; set Reject to veto envelopes.
//
// Thread-safety: all methods and inspectors are mutex-guarded.
type ScriptedAdapter struct {
	mu      sync.Mutex
	handles adapter.SequenceGenerator

	deliveries []Delivery
	removed    []adapter.Handle

	// ReplyErr fails every Reply call while set.
	ReplyErr error
	// RemoveErr fails every RemoveMessage call while set.
	RemoveErr error
	// Reject vetoes envelopes when it returns true. Nil accepts all.
	Reject func(env adapter.Envelope) bool
}

// NewScriptedAdapter creates an adapter that accepts everything.
func NewScriptedAdapter() *ScriptedAdapter {
	return &ScriptedAdapter{}
}

// Reply records the delivery and returns the next sequential handle.
func (a *ScriptedAdapter) Reply(_ context.Context, target adapter.Target, text string) (adapter.Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ReplyErr != nil {
		return "", a.ReplyErr
	}

	h := a.handles.Generate()
	a.deliveries = append(a.deliveries, Delivery{
		Handle:  h,
		User:    target.User,
		Channel: target.Channel,
		Text:    text,
	})
	return h, nil
}

// RemoveMessage records the retraction.
func (a *ScriptedAdapter) RemoveMessage(_ context.Context, h adapter.Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.RemoveErr != nil {
		return a.RemoveErr
	}
	a.removed = append(a.removed, h)
	return nil
}

// UseInContext applies the Reject hook; nil accepts every envelope.
func (a *ScriptedAdapter) UseInContext(env adapter.Envelope) bool {
	a.mu.Lock()
	reject := a.Reject
	a.mu.Unlock()

	if reject == nil {
		return true
	}
	return !reject(env)
}

// Deliveries returns a copy of everything delivered so far.
func (a *ScriptedAdapter) Deliveries() []Delivery {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Delivery, len(a.deliveries))
	copy(out, a.deliveries)
	return out
}

// Removed returns a copy of every retracted handle.
func (a *ScriptedAdapter) Removed() []adapter.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]adapter.Handle, len(a.removed))
	copy(out, a.removed)
	return out
}

// SetReplyErr sets (or clears, with nil) the injected delivery error.
func (a *ScriptedAdapter) SetReplyErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ReplyErr = err
}

// SetRemoveErr sets (or clears, with nil) the injected retraction error.
func (a *ScriptedAdapter) SetRemoveErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.RemoveErr = err
}

// SetReject installs the envelope veto hook.
func (a *ScriptedAdapter) SetReject(fn func(env adapter.Envelope) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Reject = fn
}
