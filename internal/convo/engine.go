package convo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parleybot/parley/internal/adapter"
	"github.com/parleybot/parley/internal/kind"
	"github.com/parleybot/parley/internal/store"
)

// Store is the persistence capability the engine consumes: durable
// pending-context records used only for crash recovery and audit.
// Satisfied by *store.Store.
type Store interface {
	CreateWithReply(ctx context.Context, h adapter.Handle, user, channel string) (store.Ref, error)
	Remove(ctx context.Context, ref store.Ref) error
	FindAll(ctx context.Context) ([]store.Record, error)
}

// Engine is the single-writer conversational context engine.
//
// External callers use Push, Check, and Pending from any goroutine;
// each is a synchronous round-trip through the command loop. Run must
// be called from exactly one goroutine, exactly once.
//
// Cleanup deliberately bypasses the loop: it touches only persisted
// records with no in-memory counterpart, so it may run concurrently
// with steady-state traffic at startup.
type Engine struct {
	adapter adapter.Adapter
	store   Store
	kinds   *kind.Registry
	markers []string

	clock    *Clock
	queue    *pendingQueue
	commands chan command
	done     chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithMentionMarkers sets the address markers stripped from reply text
// before matching (the bot's name and aliases). Empty markers are
// ignored; markers are normalized like identifiers.
func WithMentionMarkers(markers ...string) Option {
	return func(e *Engine) {
		for _, m := range markers {
			if n := normalize(m); n != "" {
				e.markers = append(e.markers, n)
			}
		}
	}
}

// New creates an Engine over the given adapter, store, and kind
// registry.
func New(a adapter.Adapter, s Store, kinds *kind.Registry, opts ...Option) *Engine {
	e := &Engine{
		adapter:  a,
		store:    s,
		kinds:    kinds,
		clock:    NewClock(),
		queue:    newPendingQueue(),
		commands: make(chan command),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PushRequest describes one question to ask.
type PushRequest struct {
	Prompt  string
	User    adapter.Identity
	Channel adapter.Identity
	Kind    kind.Kind
	Extra   []string
}

// commandType distinguishes loop commands.
type commandType int

const (
	commandPush commandType = iota + 1
	commandCheck
	commandSnapshot
)

type command struct {
	typ   commandType
	push  *pushCommand
	check *checkCommand
	snap  *snapshotCommand
}

type pushCommand struct {
	req  PushRequest
	resp chan pushResult
}

type pushResult struct {
	answer *Answer
	err    error
}

type checkCommand struct {
	env  adapter.Envelope
	resp chan bool
}

type snapshotCommand struct {
	resp chan []PendingInfo
}

// Run starts the single-writer command loop. Blocks until the context
// is cancelled. Must be called from exactly one goroutine, exactly
// once; Push and Check block until Run is receiving.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("context engine starting", "markers", e.markers)
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			slog.Info("context engine stopping", "reason", ctx.Err())
			return ctx.Err()
		case cmd := <-e.commands:
			e.processCommand(ctx, cmd)
		}
	}
}

// processCommand routes a command to its handler.
// Called only from the Run goroutine - single-writer guarantee.
func (e *Engine) processCommand(ctx context.Context, cmd command) {
	switch cmd.typ {
	case commandPush:
		cmd.push.resp <- e.processPush(ctx, cmd.push.req)
	case commandCheck:
		cmd.check.resp <- e.processCheck(ctx, cmd.check.env)
	case commandSnapshot:
		cmd.snap.resp <- e.queue.snapshot()
	default:
		slog.Error("unknown command type", "type", cmd.typ)
	}
}

// submit hands a command to the loop.
func (e *Engine) submit(ctx context.Context, cmd command) error {
	select {
	case e.commands <- cmd:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Push asks a question and returns the future for its answer.
//
// Any queued context with the same normalized (user, channel, kind)
// triple is silently superseded first: removed from the queue, its
// persisted record deleted, its future left forever unresolved.
//
// Failure contract:
//   - delivery failure: returned as a DeliveryError; nothing queued or
//     persisted.
//   - persistence failure after delivery: the delivered message is
//     retracted and the returned future never resolves. No error is
//     surfaced; this mirrors the supersession contract.
func (e *Engine) Push(ctx context.Context, req PushRequest) (*Answer, error) {
	cmd := command{
		typ:  commandPush,
		push: &pushCommand{req: req, resp: make(chan pushResult, 1)},
	}
	if err := e.submit(ctx, cmd); err != nil {
		return nil, err
	}
	select {
	case res := <-cmd.push.resp:
		return res.answer, res.err
	case <-e.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// processPush performs the evict / deliver / persist / enqueue sequence.
// Called only from the Run goroutine, to completion; a concurrent Check
// can never observe the queue between eviction and enqueue.
func (e *Engine) processPush(ctx context.Context, req PushRequest) pushResult {
	user := NormalizeIdent(req.User)
	channel := NormalizeIdent(req.Channel)
	if user == "" || channel == "" {
		return pushResult{err: fmt.Errorf("push: empty user or channel identifier")}
	}

	compare, ok := e.kinds.Resolve(req.Kind)
	if !ok {
		return pushResult{err: &UnknownKindError{Kind: req.Kind}}
	}
	if err := e.kinds.Vet(req.Kind, req.Extra); err != nil {
		return pushResult{err: fmt.Errorf("push: %w", err)}
	}

	// Supersede existing contexts for the triple before delivering.
	// Their futures are abandoned, never rejected.
	for _, old := range e.queue.evictMatching(user, channel, req.Kind) {
		old.answer.abandon()
		if err := e.store.Remove(ctx, old.ref); err != nil {
			slog.Warn("superseded record removal failed",
				"user", user,
				"channel", channel,
				"kind", req.Kind,
				"ref", old.ref,
				"error", err,
			)
		}
		slog.Debug("context superseded",
			"user", user,
			"channel", channel,
			"kind", req.Kind,
			"seq", old.seq,
		)
	}

	handle, err := e.adapter.Reply(ctx, adapter.Target{User: user, Channel: channel}, req.Prompt)
	if err != nil {
		return pushResult{err: &DeliveryError{User: user, Channel: channel, Err: err}}
	}

	answer := newAnswer()

	ref, err := e.store.CreateWithReply(ctx, handle, user, channel)
	if err != nil {
		// Delivered but not durable: retract the message and hand back a
		// future that never resolves. The caller observes the same
		// outcome as supersession.
		slog.Error("pending context not persisted, retracting prompt",
			"user", user,
			"channel", channel,
			"kind", req.Kind,
			"handle", handle,
			"error", err,
		)
		if rerr := e.adapter.RemoveMessage(ctx, handle); rerr != nil {
			slog.Warn("prompt retraction failed", "handle", handle, "error", rerr)
		}
		answer.abandon()
		return pushResult{answer: answer}
	}

	p := &pending{
		user:    user,
		channel: channel,
		kind:    req.Kind,
		extra:   req.Extra,
		compare: compare,
		handle:  handle,
		ref:     ref,
		answer:  answer,
		seq:     e.clock.Next(),
	}
	e.queue.enqueue(p)

	slog.Info("context queued",
		"user", user,
		"channel", channel,
		"kind", req.Kind,
		"seq", p.seq,
		"queued", e.queue.len(),
	)

	return pushResult{answer: answer}
}

// Check offers an incoming envelope to the pending queue. Returns true
// if a context was matched and resolved; false with no side effects
// otherwise.
func (e *Engine) Check(ctx context.Context, env adapter.Envelope) (bool, error) {
	cmd := command{
		typ:   commandCheck,
		check: &checkCommand{env: env, resp: make(chan bool, 1)},
	}
	if err := e.submit(ctx, cmd); err != nil {
		return false, err
	}
	select {
	case matched := <-cmd.check.resp:
		return matched, nil
	case <-e.done:
		return false, ErrStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// processCheck scans candidates oldest-first and resolves the first
// whose comparator validates the stripped text. At most one context
// resolves per envelope.
// Called only from the Run goroutine - single-writer guarantee.
func (e *Engine) processCheck(ctx context.Context, env adapter.Envelope) bool {
	// Envelope-level veto: the adapter may refuse to treat this message
	// as a context reply at all (e.g. the bot's own echo).
	if !e.adapter.UseInContext(env) {
		return false
	}

	user := normalize(env.User)
	channel := normalize(env.Channel)
	text := stripMention(env.Text, e.markers)

	for _, cand := range e.queue.candidates(user, channel) {
		value, ok := cand.compare(text, cand.extra)
		if !ok {
			continue
		}

		cand.answer.resolve(value)
		if err := e.store.Remove(ctx, cand.ref); err != nil {
			// The record is now an orphan; startup cleanup will collect it.
			slog.Warn("resolved record removal failed",
				"user", user,
				"channel", channel,
				"kind", cand.kind,
				"ref", cand.ref,
				"error", err,
			)
		}
		e.queue.remove(cand)

		slog.Info("context resolved",
			"user", user,
			"channel", channel,
			"kind", cand.kind,
			"seq", cand.seq,
			"queued", e.queue.len(),
		)
		return true
	}

	return false
}

// Pending returns a snapshot of the queued contexts in enqueue order.
func (e *Engine) Pending(ctx context.Context) ([]PendingInfo, error) {
	cmd := command{
		typ:  commandSnapshot,
		snap: &snapshotCommand{resp: make(chan []PendingInfo, 1)},
	}
	if err := e.submit(ctx, cmd); err != nil {
		return nil, err
	}
	select {
	case infos := <-cmd.snap.resp:
		return infos, nil
	case <-e.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cleanup reconciles persisted records against reality. For every
// record it retracts the delivered message and deletes the record;
// individual failures are logged and skipped, never aborting the batch.
//
// Intended to run at startup: the in-memory queue does not survive a
// restart, so every record found here is an orphan. It is safe to run
// concurrently with Push and Check because it never touches the queue.
func (e *Engine) Cleanup(ctx context.Context) error {
	records, err := e.store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	for _, rec := range records {
		if err := e.adapter.RemoveMessage(ctx, rec.Handle); err != nil {
			slog.Warn("cleanup: message retraction failed",
				"handle", rec.Handle,
				"user", rec.User,
				"channel", rec.Channel,
				"error", err,
			)
		}
		if err := e.store.Remove(ctx, rec.Ref); err != nil {
			slog.Warn("cleanup: record removal failed",
				"ref", rec.Ref,
				"user", rec.User,
				"channel", rec.Channel,
				"error", err,
			)
		}
	}

	slog.Info("cleanup complete", "records", len(records))
	return nil
}

// Clock returns the engine's logical clock, for tests that assert on
// enqueue ordering.
func (e *Engine) Clock() *Clock {
	return e.clock
}
