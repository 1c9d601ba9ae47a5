package store

import (
	"context"
	"fmt"

	"github.com/parleybot/parley/internal/adapter"
)

// Ref is the opaque reference to a persisted pending-context record,
// used to delete it once the context resolves or is superseded.
type Ref int64

// Record is a persisted pending context as cleanup sees it: enough to
// retract the delivered message and delete the row.
type Record struct {
	Ref     Ref
	Handle  adapter.Handle
	User    string
	Channel string
}

// CreateWithReply durably records a pending context for the delivered
// message and returns the reference for later deletion.
func (s *Store) CreateWithReply(ctx context.Context, h adapter.Handle, user, channel string) (Ref, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_contexts (handle, user_id, channel_id)
		VALUES (?, ?, ?)
	`, string(h), user, channel)
	if err != nil {
		return 0, fmt.Errorf("create pending context: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create pending context: last insert id: %w", err)
	}

	return Ref(id), nil
}

// Remove deletes a pending-context record. Removing a ref that no
// longer exists is not an error: the row may already be gone after a
// cleanup pass raced a resolution.
func (s *Store) Remove(ctx context.Context, ref Ref) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_contexts WHERE id = ?
	`, int64(ref)); err != nil {
		return fmt.Errorf("remove pending context %d: %w", ref, err)
	}
	return nil
}

// FindAll returns every persisted pending-context record in insertion
// order. Used only by startup cleanup; steady-state matching never
// reads the store.
//
// Returns an empty slice (not nil) when no records exist.
func (s *Store) FindAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, handle, user_id, channel_id
		FROM pending_contexts
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending contexts: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			id      int64
			handle  string
			user    string
			channel string
		)
		if err := rows.Scan(&id, &handle, &user, &channel); err != nil {
			return nil, fmt.Errorf("scan pending context: %w", err)
		}
		records = append(records, Record{
			Ref:     Ref(id),
			Handle:  adapter.Handle(handle),
			User:    user,
			Channel: channel,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending contexts: %w", err)
	}

	return records, nil
}

// Count returns the number of persisted pending-context records.
// Used by tests and the purge command's summary output.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pending_contexts
	`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending contexts: %w", err)
	}
	return n, nil
}
