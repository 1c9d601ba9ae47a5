package convo

import (
	"context"
	"sync"

	"github.com/parleybot/parley/internal/adapter"
	"github.com/parleybot/parley/internal/kind"
	"github.com/parleybot/parley/internal/store"
)

// Answer is the single-assignment future returned by Push.
//
// It resolves at most once, from a successful Check match. It is never
// rejected: a superseded context, or one whose record could not be
// persisted after delivery, simply never resolves. Callers that need a
// bound on waiting should pass a deadline to Wait.
type Answer struct {
	done chan struct{}

	mu        sync.Mutex
	value     kind.Value
	resolved  bool
	abandoned bool
}

func newAnswer() *Answer {
	return &Answer{done: make(chan struct{})}
}

// Done returns a channel closed when the answer resolves. A channel
// that never closes is a valid terminal outcome (supersession).
func (a *Answer) Done() <-chan struct{} {
	return a.done
}

// Value returns the parsed reply and true once resolved.
func (a *Answer) Value() (kind.Value, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value, a.resolved
}

// Resolved reports whether a matching reply arrived.
func (a *Answer) Resolved() bool {
	_, ok := a.Value()
	return ok
}

// Wait blocks until the answer resolves or the context is done.
func (a *Answer) Wait(ctx context.Context) (kind.Value, error) {
	select {
	case <-a.done:
		v, _ := a.Value()
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve completes the future. Called only from the engine loop, for
// exactly one successful match; the resolved guard makes a second call
// a no-op rather than a panic.
func (a *Answer) resolve(v kind.Value) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resolved || a.abandoned {
		return
	}
	a.value = v
	a.resolved = true
	close(a.done)
}

// abandon marks the future as permanently unresolvable (supersession,
// persistence failure). Internal state only: the done channel stays
// open, so callers see "never answered", not an error.
func (a *Answer) abandon() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resolved {
		return
	}
	a.abandoned = true
}

// pending is one outstanding, unanswered prompt in the queue.
type pending struct {
	user    string
	channel string
	kind    kind.Kind
	extra   []string
	compare kind.Comparator

	handle adapter.Handle // delivered message, for later retraction
	ref    store.Ref      // persisted record, deleted on any removal
	answer *Answer
	seq    int64 // enqueue order; candidate scans go oldest-first
}

// matchesTriple reports whether this context occupies the given
// (user, channel, kind) slot.
func (p *pending) matchesTriple(user, channel string, k kind.Kind) bool {
	return p.user == user && p.channel == channel && p.kind == k
}

// PendingInfo is a read-only snapshot of a queued context, exposed for
// tests and diagnostics.
type PendingInfo struct {
	User    string
	Channel string
	Kind    kind.Kind
	Seq     int64
}
