package world

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catbox-irc/modernd/internal/casefold"
	"github.com/catbox-irc/modernd/internal/isupport"
)

type recordingOutbox struct {
	sent []sentMsg
}

type sentMsg struct {
	to      SessionID
	prefix  string
	command string
	params  []string
}

func (o *recordingOutbox) Send(id SessionID, command string, params []string) {
	o.sent = append(o.sent, sentMsg{to: id, command: command, params: params})
}

func (o *recordingOutbox) SendRaw(id SessionID, prefix, command string, params []string) {
	o.sent = append(o.sent, sentMsg{to: id, prefix: prefix, command: command, params: params})
}

func newTestWorld(t *testing.T) (*World, *recordingOutbox) {
	t.Helper()
	prefix, err := isupport.ParsePrefix("(qaohv)~&@%+")
	require.NoError(t, err)
	chanModes, err := isupport.ParseChanModes("beI,k,l,imnpst")
	require.NoError(t, err)
	ob := &recordingOutbox{}
	w := New(Config{
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
	return w, ob
}

func register(t *testing.T, w *World, id SessionID, nick, user, real string) {
	t.Helper()
	w.AddSession(id, "host"+nick)
	require.NoError(t, w.SetNick(id, nick), "SetNick(%s)", nick)
	require.NoError(t, w.CompleteRegistration(id, RegistrationInfo{User: user, Real: real}), "CompleteRegistration(%s)", nick)
}

func TestRegisterNickUniqueCasefolded(t *testing.T) {
	w, _ := newTestWorld(t)
	register(t, w, 1, "Alice[", "alice", "Alice A")

	err := w.SetNick(2, "alice{")
	require.Error(t, err, "expected ERR_NICKNAMEINUSE for casefolded duplicate")
	ne, ok := err.(*NumericError)
	require.True(t, ok)
	require.Equal(t, ERR_NICKNAMEINUSE, ne.Code)
}

func TestErroneousNickname(t *testing.T) {
	w, _ := newTestWorld(t)
	w.AddSession(1, "host")
	require.Error(t, w.SetNick(1, "toolongnick1"), "expected ERR_ERRONEUSNICKNAME")
}

func TestJoinCreatesChannelFirstJoinerOp(t *testing.T) {
	w, ob := newTestWorld(t)
	register(t, w, 1, "alice", "alice", "Alice A")

	res, err := w.Join(1, "#room", "")
	require.NoError(t, err)
	require.True(t, res.Created, "expected channel creation")
	require.Len(t, res.Names, 1)
	require.Equal(t, byte('@'), res.Names[0].Prefix, "expected alice to be op")

	foundModeMsg := false
	for _, m := range ob.sent {
		if m.command == "MODE" && len(m.params) > 0 && m.params[0] == "#room" {
			foundModeMsg = true
		}
	}
	require.True(t, foundModeMsg, "expected MODE +nt broadcast on channel creation")
}

func TestJoinFanoutNoEchoOnPrivmsg(t *testing.T) {
	w, ob := newTestWorld(t)
	register(t, w, 1, "alice", "alice", "Alice A")
	register(t, w, 2, "bob", "bob", "Bob B")

	_, err := w.Join(1, "#room", "")
	require.NoError(t, err)
	_, err = w.Join(2, "#room", "")
	require.NoError(t, err)

	ob.sent = nil
	_, err = w.Privmsg(2, "#room", "hi", false)
	require.NoError(t, err)

	gotAlice := false
	for _, m := range ob.sent {
		if m.to == 1 && m.command == "PRIVMSG" {
			gotAlice = true
		}
		require.False(t, m.to == 2 && m.command == "PRIVMSG", "sender should not receive echo")
	}
	require.True(t, gotAlice, "expected alice to receive the channel message")
}

func TestPartDestroysEmptyChannel(t *testing.T) {
	w, _ := newTestWorld(t)
	register(t, w, 1, "alice", "alice", "Alice A")
	_, err := w.Join(1, "#room", "")
	require.NoError(t, err)
	require.NoError(t, w.Part(1, "#room", "bye"))

	_, _, err = w.Names(1, "#room")
	require.Error(t, err, "expected channel to be gone after last member parts")
}

func TestBanSetUnsetRoundTrips(t *testing.T) {
	w, _ := newTestWorld(t)
	register(t, w, 1, "alice", "alice", "Alice A")
	_, err := w.Join(1, "#room", "")
	require.NoError(t, err)

	_, _, _, err = w.ChannelMode(1, "#room", []ModeChangeRequest{{Sign: '+', Mode: 'b', Arg: "evil!*@*"}}, 'e', 'I')
	require.NoError(t, err)
	_, entries, err := w.QueryListMode(1, "#room", 'b', 'e', 'I')
	require.NoError(t, err)
	require.Len(t, entries, 1, "expected one ban after set")

	_, _, _, err = w.ChannelMode(1, "#room", []ModeChangeRequest{{Sign: '-', Mode: 'b', Arg: "evil!*@*"}}, 'e', 'I')
	require.NoError(t, err)
	_, entries, err = w.QueryListMode(1, "#room", 'b', 'e', 'I')
	require.NoError(t, err)
	require.Len(t, entries, 0, "expected no bans after unset")
}

func TestChannelLimitBlocksJoin(t *testing.T) {
	w, _ := newTestWorld(t)
	register(t, w, 1, "alice", "alice", "Alice A")
	register(t, w, 2, "bob", "bob", "Bob B")
	_, err := w.Join(1, "#room", "")
	require.NoError(t, err)
	_, _, _, err = w.ChannelMode(1, "#room", []ModeChangeRequest{{Sign: '+', Mode: 'l', Arg: "1"}}, 'e', 'I')
	require.NoError(t, err)

	_, err = w.Join(2, "#room", "")
	require.Error(t, err, "expected ERR_CHANNELISFULL")
	ne := err.(*NumericError)
	require.Equal(t, ERR_CHANNELISFULL, ne.Code)
}

func TestChannelKeyRequired(t *testing.T) {
	w, _ := newTestWorld(t)
	register(t, w, 1, "alice", "alice", "Alice A")
	register(t, w, 2, "bob", "bob", "Bob B")
	_, err := w.Join(1, "#room", "")
	require.NoError(t, err)
	_, _, _, err = w.ChannelMode(1, "#room", []ModeChangeRequest{{Sign: '+', Mode: 'k', Arg: "secret"}}, 'e', 'I')
	require.NoError(t, err)

	_, err = w.Join(2, "#room", "wrong")
	require.Error(t, err, "expected ERR_BADCHANNELKEY")
	ne := err.(*NumericError)
	require.Equal(t, ERR_BADCHANNELKEY, ne.Code)

	_, err = w.Join(2, "#room", "secret")
	require.NoError(t, err, "expected join with correct key to succeed")
}

func TestChangeNickAtomicAndHistory(t *testing.T) {
	w, _ := newTestWorld(t)
	register(t, w, 1, "alice", "alice", "Alice A")
	require.NoError(t, w.ChangeNick(1, "alicia"))

	_, exists := w.nicks[w.Casefold("alice")]
	require.False(t, exists, "old nick should be freed")

	hist := w.Whowas("alice")
	require.Len(t, hist, 1)
}

func TestModeratedChannelBlocksVoicelessTalk(t *testing.T) {
	w, _ := newTestWorld(t)
	register(t, w, 1, "alice", "alice", "Alice A")
	register(t, w, 2, "bob", "bob", "Bob B")
	_, err := w.Join(1, "#room", "")
	require.NoError(t, err)
	_, err = w.Join(2, "#room", "")
	require.NoError(t, err)
	_, _, _, err = w.ChannelMode(1, "#room", []ModeChangeRequest{{Sign: '+', Mode: 'm'}}, 'e', 'I')
	require.NoError(t, err)

	_, err = w.Privmsg(2, "#room", "hi", false)
	require.Error(t, err, "expected ERR_CANNOTSENDTOCHAN for voiceless member in +m channel")
}
