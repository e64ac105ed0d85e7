package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/catbox-irc/modernd/internal/casefold"
	"github.com/catbox-irc/modernd/internal/ircmsg"
	"github.com/catbox-irc/modernd/internal/isupport"
	"github.com/catbox-irc/modernd/internal/world"
)

type fakeWriter struct {
	sent       []ircmsg.Message
	terminated bool
}

func (w *fakeWriter) Enqueue(m ircmsg.Message) { w.sent = append(w.sent, m) }
func (w *fakeWriter) Terminate()               { w.terminated = true }

func (w *fakeWriter) commands() []string {
	var out []string
	for _, m := range w.sent {
		out = append(out, m.Command)
	}
	return out
}

// testOutbox routes World-originated broadcasts to whichever fakeWriter
// is registered for a given session id, so a single-connection test still
// observes messages the World sends to "itself" (JOIN echo, MODE +nt on
// channel creation, and so on).
type testOutbox struct {
	writers map[world.SessionID]*fakeWriter
}

func newTestOutbox() *testOutbox {
	return &testOutbox{writers: map[world.SessionID]*fakeWriter{}}
}

func (o *testOutbox) register(id world.SessionID, fw *fakeWriter) {
	o.writers[id] = fw
}

func (o *testOutbox) Send(id world.SessionID, command string, params []string) {
	if fw, ok := o.writers[id]; ok {
		fw.Enqueue(ircmsg.Message{Command: command, Params: params})
	}
}

func (o *testOutbox) SendRaw(id world.SessionID, prefix, command string, params []string) {
	if fw, ok := o.writers[id]; ok {
		fw.Enqueue(ircmsg.Message{Prefix: prefix, Command: command, Params: params})
	}
}

func newTestSetup(t *testing.T) (*world.World, Config, *testOutbox) {
	t.Helper()
	prefix, err := isupport.ParsePrefix("(qaohv)~&@%+")
	require.NoError(t, err)
	chanModes, err := isupport.ParseChanModes("beI,k,l,imnpst")
	require.NoError(t, err)
	iset := isupport.New(isupport.DefaultTokens())

	ob := newTestOutbox()
	w := world.New(world.Config{
		ServerName:  "test.example",
		Casemapping: casefold.RFC1459,
		NickLen:     9,
		ChannelLen:  50,
		TopicLen:    300,
		Prefix:      prefix,
		ChanModes:   chanModes,
		ExceptsChar: 'e',
		InvexChar:   'I',
	}, ob)

	cfg := Config{
		ServerName:  "test.example",
		Version:     "modernd-0",
		CreatedDate: "2026-01-01",
		ServerInfo:  "test server",
		ISupport:    iset,
		ChanModes:   chanModes,
		UserModes:   "iwo",
		ChanModeStr: "ntispkl",
		PingFreq:    time.Minute,
		IdleTimeout: time.Minute,
		ExceptsChar: 'e',
		InvexChar:   'I',
	}
	return w, cfg, ob
}

func newRegisteredSession(t *testing.T, id world.SessionID, nick string) (*Session, *fakeWriter) {
	t.Helper()
	w, cfg, ob := newTestSetup(t)
	fw := &fakeWriter{}
	ob.register(id, fw)
	sess := New(id, "host", w, fw, cfg, false)
	sess.HandleLine("NICK " + nick + "\r\n")
	sess.HandleLine("USER u 0 * :Real Name\r\n")
	require.Equal(t, Registered, sess.State, "expected registered after NICK+USER")
	return sess, fw
}

func TestRegistrationAccumulatesInAnyOrder(t *testing.T) {
	w, cfg, ob := newTestSetup(t)
	fw := &fakeWriter{}
	ob.register(1, fw)
	sess := New(1, "host", w, fw, cfg, false)

	sess.HandleLine("USER u 0 * :Real Name\r\n")
	require.NotEqual(t, Registered, sess.State, "should not register on USER alone")
	sess.HandleLine("NICK alice\r\n")
	require.Equal(t, Registered, sess.State, "expected registration to complete once NICK arrives")

	found := false
	for _, c := range fw.commands() {
		if c == world.RPL_WELCOME {
			found = true
		}
	}
	require.True(t, found, "expected welcome burst on registration")
}

func TestUnregisteredCommandRejected(t *testing.T) {
	w, cfg, ob := newTestSetup(t)
	fw := &fakeWriter{}
	ob.register(1, fw)
	sess := New(1, "host", w, fw, cfg, false)
	sess.HandleLine("JOIN #room\r\n")

	require.Len(t, fw.sent, 1)
	require.Equal(t, world.ERR_NOTREGISTERED, fw.sent[0].Command)
}

func TestJoinSendsNamesAndTopic(t *testing.T) {
	sess, fw := newRegisteredSession(t, 1, "alice")
	fw.sent = nil

	sess.HandleLine("JOIN #room\r\n")

	gotNames := false
	for _, m := range fw.sent {
		if m.Command == world.RPL_NAMREPLY {
			gotNames = true
		}
	}
	require.True(t, gotNames, "expected RPL_NAMREPLY, got %+v", fw.commands())
}

func TestPingPongClearsToken(t *testing.T) {
	sess, _ := newRegisteredSession(t, 1, "alice")
	sess.lastPingToken = "tok"
	sess.HandleLine("PONG tok\r\n")
	require.Empty(t, sess.lastPingToken, "expected PONG to clear pending token")
}

func TestQuitIsIdempotent(t *testing.T) {
	sess, fw := newRegisteredSession(t, 1, "alice")
	sess.Quit("bye")
	sess.Quit("bye again")

	errCount := 0
	for _, c := range fw.commands() {
		if c == "ERROR" {
			errCount++
		}
	}
	require.Equal(t, 1, errCount, "expected exactly one ERROR")
	require.True(t, fw.terminated, "expected Terminate to be called")
}
