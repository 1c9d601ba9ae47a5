package adapter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Console is an Adapter that writes prompts to a local stream. It exists
// so the engine can run end to end without a chat platform: `parley run`
// wires it to stdout and feeds stdin lines back as envelopes.
//
// Retraction is a log line only - text already written to a terminal
// cannot be unsent.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	handles HandleGenerator
	sent    map[Handle]string
}

// NewConsole creates a console adapter writing to out. If gen is nil,
// UUIDv7 handles are used.
func NewConsole(out io.Writer, gen HandleGenerator) *Console {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return &Console{
		out:     out,
		handles: gen,
		sent:    make(map[Handle]string),
	}
}

// Reply writes the prompt to the console stream.
func (c *Console) Reply(_ context.Context, target Target, text string) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.out, "[%s] @%s: %s\n", target.Channel, target.User, text); err != nil {
		return "", fmt.Errorf("console reply: %w", err)
	}

	h := c.handles.Generate()
	c.sent[h] = text
	return h, nil
}

// RemoveMessage marks a delivered message as retracted. The console
// cannot unprint, so this only logs and forgets the handle.
func (c *Console) RemoveMessage(_ context.Context, h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sent[h]; !ok {
		slog.Debug("console retract: unknown handle", "handle", h)
		return nil
	}
	delete(c.sent, h)
	slog.Debug("console retract", "handle", h)
	return nil
}

// UseInContext accepts every envelope: a console session has a single
// human on the other end and no echo of the bot's own output.
func (c *Console) UseInContext(Envelope) bool { return true }

// Discard is an Adapter for offline reconciliation (`parley purge`).
// There is no platform to talk to: delivery is refused and retraction
// succeeds without doing anything, so cleanup can delete persisted
// records for messages that no longer exist anywhere.
type Discard struct{}

// Reply always fails; the discard adapter cannot deliver.
func (Discard) Reply(context.Context, Target, string) (Handle, error) {
	return "", fmt.Errorf("discard adapter cannot deliver")
}

// RemoveMessage succeeds without side effects.
func (Discard) RemoveMessage(context.Context, Handle) error { return nil }

// UseInContext rejects every envelope.
func (Discard) UseInContext(Envelope) bool { return false }
