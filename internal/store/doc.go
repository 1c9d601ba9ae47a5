// Package store provides SQLite-backed durable records of pending
// contexts.
//
// The store is not consulted for matching - the engine's in-memory
// queue is the single source of truth there. A record exists purely so
// a crash does not leave the bot waiting forever with no trace of what
// it was waiting for: startup cleanup reads every record, retracts the
// delivered message, and deletes the record.
//
// Consistency contract with the queue:
//   - created when a context is enqueued (after successful delivery)
//   - deleted when the context leaves the queue for any reason except
//     process crash (resolved, superseded)
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
