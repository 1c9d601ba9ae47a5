// Package adapter defines the messaging capability the context engine
// talks through.
//
// The engine never speaks to a chat platform directly. It delivers
// prompts, retracts messages, and filters incoming envelopes through the
// Adapter contract; concrete implementations (console, test doubles,
// platform bridges) live behind it.
package adapter

import "context"

// Handle is an opaque reference to a delivered message. The engine keeps
// it only to correlate or retract the message later; its format belongs
// to the adapter that issued it.
type Handle string

// Target identifies where a prompt is delivered. Both fields are bare,
// normalized identifiers.
type Target struct {
	User    string
	Channel string
}

// Envelope is an incoming message as seen by the matching logic:
// bare user and channel identifiers plus the free-text body.
type Envelope struct {
	User    string
	Channel string
	Text    string
}

// Adapter is the narrow messaging contract the engine consumes.
//
// Reply and RemoveMessage may perform I/O and honor the passed context.
// UseInContext is a pure policy hook: it lets the adapter veto treating
// an envelope as a context reply (for example, a message the bot sent
// itself, or one from an ignored source).
type Adapter interface {
	// Reply delivers text to the target and returns a handle for the
	// delivered message.
	Reply(ctx context.Context, target Target, text string) (Handle, error)

	// RemoveMessage retracts a previously delivered message. Best-effort:
	// callers log failures rather than propagate them.
	RemoveMessage(ctx context.Context, h Handle) error

	// UseInContext reports whether the envelope may be consumed as a
	// reply to a pending context.
	UseInContext(env Envelope) bool
}

// Identity is anything that can be reduced to a bare identifier.
// Call sites may pass a plain ID or a richer user/channel object; the
// engine normalizes both to the bare identifier before storage or
// comparison.
type Identity interface {
	Ident() string
}

// ID is a bare identifier.
type ID string

// Ident implements Identity.
func (i ID) Ident() string { return string(i) }

// User is a richer user object carrying a display name alongside the
// identifier. Only the identifier participates in matching.
type User struct {
	ID          string
	DisplayName string
}

// Ident implements Identity.
func (u User) Ident() string { return u.ID }

// Channel is a richer channel object. Only the identifier participates
// in matching.
type Channel struct {
	ID   string
	Name string
}

// Ident implements Identity.
func (c Channel) Ident() string { return c.ID }
