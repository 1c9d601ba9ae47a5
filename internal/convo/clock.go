package convo

import "sync/atomic"

// Clock is a monotonic logical clock. Queue entries are stamped with a
// seq at enqueue time so candidate scans visit contexts oldest-first,
// independent of wall time.
//
// Thread-safety: safe for concurrent use (atomic operations), though
// the engine's single-writer design means only the loop goroutine
// normally calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
