package dcc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttachSlotsAreExclusive(t *testing.T) {
	p := NewPipe(Token{1}, 100)
	require.True(t, p.AttachSender(), "first AttachSender should succeed")
	require.False(t, p.AttachSender(), "second AttachSender should fail")
	require.True(t, p.AttachReceiver(), "AttachReceiver should succeed independently of sender slot")
	require.False(t, p.AttachReceiver(), "second AttachReceiver should fail")
	require.True(t, p.Ready(), "expected pipe ready once both slots attached")
}

func TestPushPullOrdering(t *testing.T) {
	p := NewPipe(Token{1}, 0)
	go func() {
		p.Push([]byte("a"))
		p.Push([]byte("b"))
		p.Close()
	}()

	chunk, ok := p.Pull()
	require.True(t, ok)
	require.Equal(t, "a", string(chunk))

	chunk, ok = p.Pull()
	require.True(t, ok)
	require.Equal(t, "b", string(chunk))

	_, ok = p.Pull()
	require.False(t, ok, "expected drained pipe to report ok=false")
}

func TestCloseUnblocksPush(t *testing.T) {
	p := NewPipe(Token{1}, 0)
	// Fill the queue so a further Push blocks until Close releases it.
	for i := 0; i < queueDepth; i++ {
		require.True(t, p.Push([]byte{byte(i)}), "unexpected push failure while filling queue")
	}

	done := make(chan bool)
	go func() { done <- p.Push([]byte("overflow")) }()

	p.Close()
	require.False(t, <-done, "expected Push to fail after Close")
}
