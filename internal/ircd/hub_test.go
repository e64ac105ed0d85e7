package ircd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catbox-irc/modernd/internal/ircmsg"
	"github.com/catbox-irc/modernd/internal/world"
)

func TestHubRoutesToRegisteredConn(t *testing.T) {
	h := NewHub(nil)
	c := &conn{id: 1, out: make(chan ircmsg.Message, 4)}
	h.add(c)

	h.Send(1, "PING", []string{"tok"})
	h.SendRaw(2, "nobody", "PRIVMSG", []string{"x", "y"})

	select {
	case m := <-c.out:
		require.Equal(t, "PING", m.Command)
	default:
		t.Fatal("expected a queued message for session 1")
	}

	require.Len(t, c.out, 0, "unregistered session 2 should not have been routed anywhere")
}

func TestConnEnqueueOverflowTerminatesWithoutSession(t *testing.T) {
	c := &conn{id: 1, out: make(chan ircmsg.Message, 1)}
	c.Enqueue(ircmsg.Message{Command: "A"})
	c.Enqueue(ircmsg.Message{Command: "B"}) // queue full, sess is nil -> Terminate

	first, ok := <-c.out
	require.True(t, ok)
	require.Equal(t, "A", first.Command)

	_, ok = <-c.out
	require.False(t, ok, "expected channel closed after overflow with no session attached")
}

func TestHubRemove(t *testing.T) {
	h := NewHub(nil)
	c := &conn{id: world.SessionID(5), out: make(chan ircmsg.Message, 1)}
	h.add(c)
	_, ok := h.get(5)
	require.True(t, ok, "expected conn registered")
	h.remove(5)
	_, ok = h.get(5)
	require.False(t, ok, "expected conn removed")
}
