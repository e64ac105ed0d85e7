package ircmsg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	m, err := Parse(":alice!a@host PRIVMSG #room :hi there\r\n")
	require.NoError(t, err)
	require.Equal(t, "alice!a@host", m.Prefix)
	require.Equal(t, "PRIVMSG", m.Command)
	require.Equal(t, []string{"#room", "hi there"}, m.Params)
	require.Equal(t, "alice", m.SourceNick())
}

func TestParseNumericCommand(t *testing.T) {
	m, err := Parse(":server.example 001 alice :Welcome\r\n")
	require.NoError(t, err)
	require.Equal(t, "001", m.Command)
}

func TestParseLenientLF(t *testing.T) {
	m, err := Parse("PING :token\n")
	require.NoError(t, err)
	require.Equal(t, "PING", m.Command)
	require.Equal(t, "token", m.Params[0])
}

func TestParseTags(t *testing.T) {
	m, err := Parse("@id=123;label=a\\sb :nick!u@h PRIVMSG #c :hi\r\n")
	require.NoError(t, err)

	v, ok := m.Tag("id")
	require.True(t, ok)
	require.Equal(t, "123", v)

	v, ok = m.Tag("label")
	require.True(t, ok)
	require.Equal(t, "a b", v)
}

func TestParseTagsUnknownEscape(t *testing.T) {
	m, err := Parse("@foo=a\\qb COMMAND\r\n")
	require.NoError(t, err)
	v, _ := m.Tag("foo")
	require.Equal(t, "aqb", v)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Message{
		{Command: "PING", Params: []string{"token"}},
		{Prefix: "alice!a@host", Command: "PRIVMSG", Params: []string{"#room", "hello world"}},
		{Command: "001", Params: []string{"alice", "Welcome to the network"}},
		{Tags: map[string]string{"time": "2021-01-01T00:00:00Z"}, Command: "PRIVMSG", Params: []string{"#c", "hi"}},
	}

	for _, m := range cases {
		enc, err := m.Encode()
		require.NoError(t, err, "encode %+v", m)

		dec, err := Parse(enc)
		require.NoError(t, err, "decode %q", enc)

		require.Equal(t, m.Prefix, dec.Prefix)
		require.Equal(t, m.Command, dec.Command)
		require.Equal(t, m.Params, dec.Params)

		for k, v := range m.Tags {
			got, ok := dec.Tag(k)
			require.True(t, ok, "round trip tag %q missing", k)
			require.Equal(t, v, got, "round trip tag %q mismatch", k)
		}
	}
}

func TestEncodeTruncatesOverlongLine(t *testing.T) {
	longParam := make([]byte, 600)
	for i := range longParam {
		longParam[i] = 'x'
	}
	m := Message{Prefix: "server", Command: "PRIVMSG", Params: []string{"#room", string(longParam)}}
	enc, err := m.Encode()
	require.Equal(t, ErrTruncated, err)
	require.Len(t, enc, MaxLineLength)
	require.Equal(t, "\r\n", enc[len(enc)-2:])
}

func TestParseTruncatesOverlongInput(t *testing.T) {
	longParam := make([]byte, 600)
	for i := range longParam {
		longParam[i] = 'x'
	}
	line := ":server PRIVMSG #room :" + string(longParam) + "\r\n"
	m, err := Parse(line)
	require.NoError(t, err)

	reenc, err := m.Encode()
	if err != nil {
		require.Equal(t, ErrTruncated, err)
	}
	require.LessOrEqual(t, len(reenc), MaxLineLength)
}

func TestParseMalformedNoProfix(t *testing.T) {
	_, err := Parse(":\r\n")
	require.Error(t, err, "expected error for prefix-only line")
}

func TestParseTooManyParams(t *testing.T) {
	line := "CMD"
	for i := 0; i < 16; i++ {
		line += " a"
	}
	line += "\r\n"
	_, err := Parse(line)
	require.Error(t, err, "expected error for too many parameters")
}
