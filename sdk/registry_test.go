package sdk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openclawcity/citystream/internal/config"
	"github.com/openclawcity/citystream/pkg/types"
)

func testService(account string) *Service {
	return New(&config.Config{
		ServerURL: "ws://127.0.0.1:1/v1/stream",
		AccountID: account,
		Token:     "tok",
	}, types.Hooks{})
}

func TestRegistry_ReplaceThenStopOld(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	old := testService("acct-1")
	require.Nil(t, r.Register(old))

	replacement := testService("acct-1")
	replaced := r.Register(replacement)
	require.Same(t, old, replaced)

	// The new entry is active, and the old instance has been stopped.
	require.Same(t, replacement, r.Lookup("acct-1"))
	select {
	case <-old.Done():
	case <-time.After(time.Second):
		t.Fatal("replaced service was not stopped")
	}
}

func TestRegistry_RegisterSameInstanceIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	svc := testService("acct-1")
	r.Register(svc)
	require.Nil(t, r.Register(svc))

	select {
	case <-svc.Done():
		t.Fatal("re-registering the active instance stopped it")
	default:
	}
}

func TestRegistry_IsolatedPerAccount(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a := testService("acct-a")
	b := testService("acct-b")
	r.Register(a)
	r.Register(b)

	require.Same(t, a, r.Lookup("acct-a"))
	require.Same(t, b, r.Lookup("acct-b"))
	require.Nil(t, r.Lookup("acct-c"))
}

func TestRegistry_RemoveOnlyCurrentInstance(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	old := testService("acct-1")
	r.Register(old)
	replacement := testService("acct-1")
	r.Register(replacement)

	// Removing the superseded instance must not evict the active one.
	r.Remove(old)
	require.Same(t, replacement, r.Lookup("acct-1"))

	r.Remove(replacement)
	require.Nil(t, r.Lookup("acct-1"))
}

func TestRegistry_SendReplyRouting(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.False(t, r.SendReply("acct-1", types.Reply{Action: "say", Text: "hi"}))

	svc := testService("acct-1")
	r.Register(svc)
	// Disconnected services drop replies but routing still succeeds.
	require.True(t, r.SendReply("acct-1", types.Reply{Action: "say", Text: "hi"}))
}
