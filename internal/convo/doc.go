// Package convo implements the conversational context engine.
//
// A capability module asks a question with Push and gets back a future
// that resolves when a matching reply arrives; the conversation loop is
// never blocked. Every inbound message is offered to Check, which scans
// the pending queue for that user and channel, parses the reply through
// the kind registry, and resolves at most one context per message.
//
// ARCHITECTURE:
//
// Single-Writer Command Loop:
// All queue mutation happens in the one goroutine running Engine.Run.
// Push and Check are processed to completion inside that goroutine, so
// the evict-conflicts / deliver / persist / enqueue sequence of a push
// is atomic with respect to any concurrent check. No reply can observe
// a context mid-eviction, and no two pushes for the same triple both
// survive.
//
// INVARIANTS:
//   - At most one queued context per (user, channel, kind) triple; a
//     new push silently evicts all existing matches without resolving
//     their futures.
//   - A future resolves exactly once, only from a successful check
//     match, and the matched context leaves the queue in the same step.
//   - The in-memory queue is the single source of truth for matching;
//     the persisted record mirrors queue membership and exists only for
//     crash recovery.
//
// A superseded or persistence-orphaned future simply never resolves.
// That is the documented contract, not an error path: callers observe
// "never answered", never a rejection.
//
// Cleanup reconciles persisted records at startup. It runs outside the
// command loop; a fresh process has an empty queue, so there is no
// overlap hazard with steady-state traffic.
package convo
