package clientcore

import (
	"bytes"
	"encoding/hex"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/catbox-irc/modernd/internal/dcc"
	"github.com/catbox-irc/modernd/internal/ircmsg"
)

type recordingHandler struct {
	messages chan ircmsg.Message
	offers   chan DCCOffer
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		messages: make(chan ircmsg.Message, 16),
		offers:   make(chan DCCOffer, 16),
	}
}

func (h *recordingHandler) HandleMessage(m ircmsg.Message)         { h.messages <- m }
func (h *recordingHandler) HandleDCCOffer(from string, o DCCOffer) { h.offers <- o }

func TestCommandsEncodeExpectedLines(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	h := newRecordingHandler()
	c := NewOnConn(client, h, 0, 0, nil)

	go c.Join("#test", "")

	buf := make([]byte, 512)
	n, err := server.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "JOIN #test\r\n", string(buf[:n]))
}

func TestRunDispatchesMessagesAndDCCOffers(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	h := newRecordingHandler()
	c := NewOnConn(client, h, 0, 0, nil)
	go c.Run()

	go server.Write([]byte("PING :abc\r\n"))
	select {
	case m := <-h.messages:
		require.Equal(t, "PING", m.Command)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	tok := dcc.Token{1, 2, 3}
	offerLine := ":alice!u@h PRIVMSG bob :\x01DCC SEND report.txt 16909060 4000 12 " +
		hex.EncodeToString(tok[:]) + "\x01\r\n"
	go server.Write([]byte(offerLine))

	select {
	case o := <-h.offers:
		require.Equal(t, "report.txt", o.Filename)
		require.Equal(t, 4000, o.Port)
		require.Equal(t, int64(12), o.Size)
		require.Equal(t, tok, o.Token)
		require.Equal(t, "1.2.3.4", o.IP.String())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dcc offer")
	}
}

func TestParseDCCSendOfferRejectsMalformed(t *testing.T) {
	_, ok := ParseDCCSendOffer("not ctcp at all")
	require.False(t, ok, "expected rejection of non-CTCP text")

	_, ok = ParseDCCSendOffer("\x01DCC SEND onlyfourfields 1 2\x01")
	require.False(t, ok, "expected rejection of short DCC SEND")
}

func TestDCCSendAndAcceptRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	sender := NewOnConn(clientConn, newRecordingHandler(), 16000, 16100, nil)

	offerLines := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, err := serverConn.Read(buf)
		if err == nil {
			offerLines <- string(buf[:n])
		}
	}()

	payload := []byte("hello from the sender side")
	transfer, err := sender.DCCSend("bob", "greeting.txt", net.ParseIP("127.0.0.1"), bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)
	defer transfer.Close()

	var line string
	select {
	case line = <-offerLines:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the DCC SEND offer line")
	}

	m, err := ircmsg.Parse(line)
	require.NoError(t, err)
	offer, ok := ParseDCCSendOffer(m.Params[1])
	require.True(t, ok, "failed to parse offer out of %q", line)

	var out bytes.Buffer
	require.NoError(t, sender.AcceptDCC(offer, &out))
	require.Equal(t, string(payload), out.String())

	select {
	case err := <-transfer.Done:
		require.NoError(t, err, "sender side reported error")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sender side to finish")
	}
}
