package convo

import "github.com/parleybot/parley/internal/kind"

// pendingQueue holds queued contexts in enqueue order.
//
// The queue is exclusively owned by the engine's command loop and has
// no locking of its own: every mutation happens in the loop goroutine.
// No other component may read or mutate it directly.
type pendingQueue struct {
	items []*pending
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{items: make([]*pending, 0, 16)}
}

// enqueue appends a context at the back.
func (q *pendingQueue) enqueue(p *pending) {
	q.items = append(q.items, p)
}

// evictMatching removes and returns every context for the triple, in
// queue order. Callers own the follow-up (abandoning futures, deleting
// persisted records).
func (q *pendingQueue) evictMatching(user, channel string, k kind.Kind) []*pending {
	var evicted []*pending
	kept := q.items[:0]
	for _, p := range q.items {
		if p.matchesTriple(user, channel, k) {
			evicted = append(evicted, p)
		} else {
			kept = append(kept, p)
		}
	}
	// Nil out the tail so removed contexts do not pin their futures.
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = kept
	return evicted
}

// candidates returns the queued contexts for a (user, channel) pair in
// enqueue order. The returned slice is freshly allocated; the caller
// may iterate while removing.
func (q *pendingQueue) candidates(user, channel string) []*pending {
	var out []*pending
	for _, p := range q.items {
		if p.user == user && p.channel == channel {
			out = append(out, p)
		}
	}
	return out
}

// remove deletes a single context, preserving order of the rest.
// Returns false if the context is no longer queued.
func (q *pendingQueue) remove(target *pending) bool {
	for i, p := range q.items {
		if p == target {
			copy(q.items[i:], q.items[i+1:])
			q.items[len(q.items)-1] = nil
			q.items = q.items[:len(q.items)-1]
			return true
		}
	}
	return false
}

// snapshot returns read-only info for every queued context.
func (q *pendingQueue) snapshot() []PendingInfo {
	out := make([]PendingInfo, len(q.items))
	for i, p := range q.items {
		out[i] = PendingInfo{User: p.user, Channel: p.channel, Kind: p.kind, Seq: p.seq}
	}
	return out
}

func (q *pendingQueue) len() int {
	return len(q.items)
}
