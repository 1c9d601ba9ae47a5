package adapter

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// HandleGenerator mints delivery handles for adapters that have no
// platform-assigned message IDs (console, test doubles).
type HandleGenerator interface {
	Generate() Handle
}

// UUIDv7Generator mints time-sortable UUIDv7 handles.
//
// UUIDv7 embeds a timestamp in the most significant bits, so handles
// sort by delivery time, which helps when reading reconciliation logs.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() Handle {
	return Handle(uuid.Must(uuid.NewV7()).String())
}

// SequenceGenerator mints predictable handles ("h-1", "h-2", ...) for
// deterministic tests and golden transcript comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu sync.Mutex
	n  int
}

// Generate returns the next handle in sequence, starting at "h-1".
func (g *SequenceGenerator) Generate() Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return Handle(fmt.Sprintf("h-%d", g.n))
}
