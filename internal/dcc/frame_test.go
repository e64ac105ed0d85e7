package dcc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Frame{Opcode: OpData, Payload: []byte("hello world")}
	require.NoError(t, WriteFrame(&buf, want))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, want.Opcode, got.Opcode)
	require.Equal(t, string(want.Payload), string(got.Payload))
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	huge := make([]byte, MaxPayload+100)
	require.NoError(t, WriteFrame(&buf, Frame{Opcode: OpData, Payload: huge}))

	_, err := ReadFrame(&buf)
	require.Equal(t, ErrFrameTooLarge, err)
}

func TestHelloEncodeDecodeRoundTrip(t *testing.T) {
	tok := Token{1, 2, 3, 4}
	payload := EncodeHello(RoleSender, tok, "report.txt", 12345)
	role, gotTok, filename, size, err := DecodeHello(payload)
	require.NoError(t, err)
	require.Equal(t, RoleSender, role)
	require.Equal(t, tok, gotTok)
	require.Equal(t, "report.txt", filename)
	require.Equal(t, uint64(12345), size)
}

func TestDecodeHelloRejectsBadRole(t *testing.T) {
	payload := EncodeHello(RoleSender, Token{}, "", 0)
	payload[1] = 99
	_, _, _, _, err := DecodeHello(payload)
	require.Equal(t, ErrUnknownRole, err)
}

func TestDecodeHelloRejectsBadVersion(t *testing.T) {
	payload := EncodeHello(RoleSender, Token{}, "", 0)
	payload[0] = 99
	_, _, _, _, err := DecodeHello(payload)
	require.Equal(t, ErrUnknownVersion, err)
}
