package convo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/parleybot/parley/internal/adapter"
	"github.com/parleybot/parley/internal/convo"
	"github.com/parleybot/parley/internal/kind"
	"github.com/parleybot/parley/internal/store"
	"github.com/parleybot/parley/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })
	return st
}

// startEngine wires an engine over the given doubles and runs its loop
// until the test ends.
func startEngine(t *testing.T, a adapter.Adapter, s convo.Store, opts ...convo.Option) *convo.Engine {
	t.Helper()
	eng := convo.New(a, s, kind.NewRegistry(), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return eng
}

func push(t *testing.T, eng *convo.Engine, user, channel string, k kind.Kind, extra ...string) *convo.Answer {
	t.Helper()
	a, err := eng.Push(context.Background(), convo.PushRequest{
		Prompt:  "How many?",
		User:    adapter.ID(user),
		Channel: adapter.ID(channel),
		Kind:    k,
		Extra:   extra,
	})
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func check(t *testing.T, eng *convo.Engine, user, channel, text string) bool {
	t.Helper()
	matched, err := eng.Check(context.Background(), adapter.Envelope{
		User:    user,
		Channel: channel,
		Text:    text,
	})
	require.NoError(t, err)
	return matched
}

func TestEngine_PushAndResolve(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st)

	ans := push(t, eng, "alice", "general", kind.Number)

	deliveries := ad.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "How many?", deliveries[0].Text)
	assert.Equal(t, "alice", deliveries[0].User)

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.True(t, check(t, eng, "alice", "general", "7"))

	v, ok := ans.Value()
	require.True(t, ok)
	assert.Equal(t, kind.Int(7), v)

	// Resolution consumes the context and its record.
	n, err = st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	infos, err := eng.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)

	// A second reply has nothing left to match.
	assert.False(t, check(t, eng, "alice", "general", "8"))
	v, ok = ans.Value()
	require.True(t, ok)
	assert.Equal(t, kind.Int(7), v)
}

func TestEngine_Supersession(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st)

	first := push(t, eng, "alice", "general", kind.Number)
	second := push(t, eng, "alice", "general", kind.Number)

	// Only the latest context holds the slot; only its record persists.
	infos, err := eng.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, int64(2), infos[0].Seq)

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.True(t, check(t, eng, "alice", "general", "42"))

	v, ok := second.Value()
	require.True(t, ok)
	assert.Equal(t, kind.Int(42), v)

	// The superseded future stays silent forever: not resolved, not
	// rejected, done never signalled.
	assert.False(t, first.Resolved())
	select {
	case <-first.Done():
		t.Fatal("superseded answer must never signal done")
	default:
	}
}

func TestEngine_DifferentKindsCoexist(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st)

	num := push(t, eng, "alice", "general", kind.Number)
	yn := push(t, eng, "alice", "general", kind.Boolean)

	infos, err := eng.Pending(context.Background())
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	// "yes" is not a number; it matches only the boolean context.
	require.True(t, check(t, eng, "alice", "general", "yes"))
	v, ok := yn.Value()
	require.True(t, ok)
	assert.Equal(t, kind.Bool(true), v)
	assert.False(t, num.Resolved())

	require.True(t, check(t, eng, "alice", "general", "7"))
	v, ok = num.Value()
	require.True(t, ok)
	assert.Equal(t, kind.Int(7), v)
}

func TestEngine_OldestCandidateWins(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st)

	// Both comparators accept "7"; the older context must claim it.
	older := push(t, eng, "alice", "general", kind.Number)
	newer := push(t, eng, "alice", "general", kind.Regex, `\d+`)

	require.True(t, check(t, eng, "alice", "general", "7"))

	assert.True(t, older.Resolved())
	assert.False(t, newer.Resolved())

	// At most one context resolves per envelope.
	infos, err := eng.Pending(context.Background())
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestEngine_MentionStripping(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st, convo.WithMentionMarkers("parley"))

	ans := push(t, eng, "alice", "general", kind.Number)

	require.True(t, check(t, eng, "alice", "general", "@parley: 7"))
	v, ok := ans.Value()
	require.True(t, ok)
	assert.Equal(t, kind.Int(7), v)

	// The bare form produces the identical outcome.
	bare := push(t, eng, "alice", "general", kind.Number)
	require.True(t, check(t, eng, "alice", "general", "7"))
	v, ok = bare.Value()
	require.True(t, ok)
	assert.Equal(t, kind.Int(7), v)
}

func TestEngine_IdentifierNormalization(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st)

	// Push with sigil-ed identifiers and a rich user object; the
	// envelope carries bare, untrimmed forms. They must meet.
	ans, err := eng.Push(context.Background(), convo.PushRequest{
		Prompt:  "Proceed?",
		User:    adapter.User{ID: "@alice", DisplayName: "Alice"},
		Channel: adapter.Channel{ID: "#general", Name: "General"},
		Kind:    kind.Boolean,
	})
	require.NoError(t, err)

	require.True(t, check(t, eng, " alice ", "general", "no"))
	v, ok := ans.Value()
	require.True(t, ok)
	assert.Equal(t, kind.Bool(false), v)
}

func TestEngine_AdapterVeto(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st)

	ans := push(t, eng, "alice", "general", kind.Number)

	ad.SetReject(func(adapter.Envelope) bool { return true })
	assert.False(t, check(t, eng, "alice", "general", "7"))
	assert.False(t, ans.Resolved())

	ad.SetReject(nil)
	assert.True(t, check(t, eng, "alice", "general", "7"))
}

func TestEngine_CheckNoCandidates(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st)

	assert.False(t, check(t, eng, "alice", "general", "7"))
}

func TestEngine_PushUnknownKind(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st)

	_, err := eng.Push(context.Background(), convo.PushRequest{
		Prompt:  "?",
		User:    adapter.ID("alice"),
		Channel: adapter.ID("general"),
		Kind:    kind.Kind("temperature"),
	})
	require.Error(t, err)
	assert.True(t, convo.IsUnknownKind(err))
	assert.Empty(t, ad.Deliveries())
}

func TestEngine_PushInvalidExtra(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st)

	_, err := eng.Push(context.Background(), convo.PushRequest{
		Prompt:  "?",
		User:    adapter.ID("alice"),
		Channel: adapter.ID("general"),
		Kind:    kind.Number,
		Extra:   []string{"low", "high"},
	})
	require.Error(t, err)
	assert.Empty(t, ad.Deliveries())
}

func TestEngine_PushEmptyIdentifier(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st)

	_, err := eng.Push(context.Background(), convo.PushRequest{
		Prompt:  "?",
		User:    adapter.ID("   "),
		Channel: adapter.ID("general"),
		Kind:    kind.Number,
	})
	require.Error(t, err)
}

func TestEngine_DeliveryFailure(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	ad.SetReplyErr(errors.New("gateway down"))
	st := openStore(t)
	eng := startEngine(t, ad, st)

	ans, err := eng.Push(context.Background(), convo.PushRequest{
		Prompt:  "?",
		User:    adapter.ID("alice"),
		Channel: adapter.ID("general"),
		Kind:    kind.Number,
	})
	require.Error(t, err)
	assert.True(t, convo.IsDelivery(err))
	assert.Nil(t, ans)

	// Nothing queued, nothing persisted.
	infos, perr := eng.Pending(context.Background())
	require.NoError(t, perr)
	assert.Empty(t, infos)
	n, cerr := st.Count(context.Background())
	require.NoError(t, cerr)
	assert.Equal(t, 0, n)
}

// failingStore wraps a real store and fails record creation on demand.
type failingStore struct {
	*store.Store
	createErr error
}

func (f *failingStore) CreateWithReply(ctx context.Context, h adapter.Handle, user, channel string) (store.Ref, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	return f.Store.CreateWithReply(ctx, h, user, channel)
}

func TestEngine_PersistenceFailure(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	fs := &failingStore{Store: st, createErr: errors.New("disk full")}
	eng := startEngine(t, ad, fs)

	// The push "succeeds" from the caller's view but the future is
	// permanently silent, exactly like supersession.
	ans := push(t, eng, "alice", "general", kind.Number)
	assert.False(t, ans.Resolved())

	// The delivered prompt was retracted.
	require.Len(t, ad.Deliveries(), 1)
	assert.Equal(t, []adapter.Handle{ad.Deliveries()[0].Handle}, ad.Removed())

	// Nothing to match against.
	infos, err := eng.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
	assert.False(t, check(t, eng, "alice", "general", "7"))
}

func TestEngine_Cleanup(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)

	// Records left behind by a previous process; no loop is running.
	for i, h := range []adapter.Handle{"m-1", "m-2", "m-3"} {
		_, err := st.CreateWithReply(context.Background(), h, "alice", "general")
		require.NoError(t, err, "record %d", i)
	}

	eng := convo.New(ad, st, kind.NewRegistry())
	require.NoError(t, eng.Cleanup(context.Background()))

	assert.Equal(t, []adapter.Handle{"m-1", "m-2", "m-3"}, ad.Removed())
	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEngine_CleanupRetractionFailuresDoNotAbort(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	ad.SetRemoveErr(errors.New("message gone"))
	st := openStore(t)

	for _, h := range []adapter.Handle{"m-1", "m-2"} {
		_, err := st.CreateWithReply(context.Background(), h, "alice", "general")
		require.NoError(t, err)
	}

	eng := convo.New(ad, st, kind.NewRegistry())
	require.NoError(t, eng.Cleanup(context.Background()))

	// Every record is still deleted even though every retraction failed.
	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEngine_Stopped(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := convo.New(ad, st, kind.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()
	cancel()
	<-done

	_, err := eng.Push(context.Background(), convo.PushRequest{
		Prompt:  "?",
		User:    adapter.ID("alice"),
		Channel: adapter.ID("general"),
		Kind:    kind.Number,
	})
	assert.ErrorIs(t, err, convo.ErrStopped)

	_, err = eng.Check(context.Background(), adapter.Envelope{User: "alice", Channel: "general", Text: "7"})
	assert.ErrorIs(t, err, convo.ErrStopped)
}

func TestEngine_WaitDeadline(t *testing.T) {
	ad := testutil.NewScriptedAdapter()
	st := openStore(t)
	eng := startEngine(t, ad, st)

	ans := push(t, eng, "alice", "general", kind.Number)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := ans.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.True(t, check(t, eng, "alice", "general", "7"))
	v, err := ans.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, kind.Int(7), v)
}
