package dcc

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServiceRelaysSenderToReceiver(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	svc := NewService(NewTable(), 2*time.Second, nil)
	go svc.Serve(ln)

	tok := Token{7, 7, 7}
	payload := []byte("the quick brown fox")

	receiverConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer receiverConn.Close()
	require.NoError(t, WriteFrame(receiverConn, Frame{Opcode: OpHello, Payload: EncodeHello(RoleReceiver, tok, "fox.txt", uint64(len(payload)))}))

	senderConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer senderConn.Close()
	require.NoError(t, WriteFrame(senderConn, Frame{Opcode: OpHello, Payload: EncodeHello(RoleSender, tok, "fox.txt", uint64(len(payload)))}))

	require.NoError(t, WriteFrame(senderConn, Frame{Opcode: OpData, Payload: payload}))
	ackFrame, err := ReadFrame(senderConn)
	require.NoError(t, err)
	require.Equal(t, OpAck, ackFrame.Opcode)

	require.NoError(t, WriteFrame(senderConn, Frame{Opcode: OpEOF}))

	dataFrame, err := ReadFrame(receiverConn)
	require.NoError(t, err)
	require.Equal(t, OpData, dataFrame.Opcode)
	require.Equal(t, string(payload), string(dataFrame.Payload))

	require.NoError(t, WriteFrame(receiverConn, Frame{Opcode: OpAck}))

	eofFrame, err := ReadFrame(receiverConn)
	require.NoError(t, err)
	require.Equal(t, OpEOF, eofFrame.Opcode)
}

func TestServiceRejectsDuplicateRoleAttach(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	table := NewTable()
	svc := NewService(table, 2*time.Second, nil)
	go svc.Serve(ln)

	tok := Token{1}
	pipe, _ := table.GetOrCreate(tok, 0)

	first, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, WriteFrame(first, Frame{Opcode: OpHello, Payload: EncodeHello(RoleSender, tok, "f", 0)}))

	// Connections are handled concurrently, so wait until the first one
	// holds the sender slot before the second one tries to claim it.
	for i := 0; i < 200 && atomic.LoadInt32(&pipe.senderSlot) == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}

	second, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, WriteFrame(second, Frame{Opcode: OpHello, Payload: EncodeHello(RoleSender, tok, "f", 0)}))

	resp, err := ReadFrame(second)
	require.NoError(t, err)
	require.Equal(t, OpError, resp.Opcode)
	require.Equal(t, ErrMultipleSenders, DecodeErrorCode(resp.Payload))
}
