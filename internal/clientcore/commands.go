package clientcore

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/catbox-irc/modernd/internal/dcc"
	"github.com/catbox-irc/modernd/internal/ircmsg"
)

// Commands is the command surface cmd/irc-client's line-editing loop
// drives; it exists mainly so the UI layer can be tested against a fake
// without a live socket.
type Commands interface {
	Join(channel, key string) error
	Part(channel, reason string) error
	Msg(target, text string) error
	Notice(target, text string) error
	Nick(nick string) error
	Topic(channel, topic string) error
	Mode(target, modeStr string, args ...string) error
	Names(channel string) error
	List() error
	Whois(nick string) error
	Quit(reason string) error
	DCCSend(nick, filename string, localIP net.IP, r io.Reader, size int64) (*DCCTransfer, error)
	AcceptDCC(offer DCCOffer, dest io.Writer) error
}

var _ Commands = (*Client)(nil)

func (c *Client) send(command string, params ...string) error {
	return c.sendLine(ircmsg.Message{Command: command, Params: params})
}

func (c *Client) Join(channel, key string) error {
	if key == "" {
		return c.send("JOIN", channel)
	}
	return c.send("JOIN", channel, key)
}

func (c *Client) Part(channel, reason string) error {
	if reason == "" {
		return c.send("PART", channel)
	}
	return c.send("PART", channel, reason)
}

func (c *Client) Msg(target, text string) error {
	return c.send("PRIVMSG", target, text)
}

func (c *Client) Notice(target, text string) error {
	return c.send("NOTICE", target, text)
}

func (c *Client) Nick(nick string) error {
	return c.send("NICK", nick)
}

// RawUser sends the registration-time USER command. It isn't part of
// Commands since, unlike everything else there, it's only ever valid
// once, before registration completes.
func (c *Client) RawUser(user, realName string) error {
	return c.send("USER", user, "0", "*", realName)
}

func (c *Client) Topic(channel, topic string) error {
	if topic == "" {
		return c.send("TOPIC", channel)
	}
	return c.send("TOPIC", channel, topic)
}

func (c *Client) Mode(target, modeStr string, args ...string) error {
	params := append([]string{target, modeStr}, args...)
	return c.send("MODE", params...)
}

func (c *Client) Names(channel string) error {
	return c.send("NAMES", channel)
}

func (c *Client) List() error {
	return c.send("LIST")
}

func (c *Client) Whois(nick string) error {
	return c.send("WHOIS", nick)
}

func (c *Client) Quit(reason string) error {
	if reason == "" {
		return c.send("QUIT")
	}
	return c.send("QUIT", reason)
}

// DCCTransfer tracks an outgoing, self-hosted file send: the listener
// this client opened, and a channel that receives one value once the
// whole of the local reader has been handed to the pipe (nil) or the
// send has stopped early (the error). The channel is never closed.
type DCCTransfer struct {
	ln   net.Listener
	Done chan error
}

// Close shuts down the transfer's listener early, e.g. if the user
// cancels before the peer connects.
func (t *DCCTransfer) Close() error {
	return t.ln.Close()
}

// DCCSend opens a listener in [DCCPortMin, DCCPortMax], then offers
// filename to nick over CTCP, and acts as the FileTransferService's SENDER
// side: r is read locally and pushed onto the pipe directly (no network
// hop on this end), while the single inbound connection -- the peer
// that accepted the offer -- is served the RECEIVER side of the same
// protocol used by internal/dcc.
func (c *Client) DCCSend(nick, filename string, localIP net.IP, r io.Reader, size int64) (*DCCTransfer, error) {
	ln, port, err := listenInRange(c.DCCPortMin, c.DCCPortMax)
	if err != nil {
		return nil, fmt.Errorf("clientcore: opening dcc listener: %w", err)
	}

	token, err := randomToken()
	if err != nil {
		ln.Close()
		return nil, err
	}

	table := dcc.NewTable()
	pipe, _ := table.GetOrCreate(token, uint64(size))
	if !pipe.AttachSender() {
		ln.Close()
		return nil, fmt.Errorf("clientcore: could not attach local sender slot")
	}

	svc := dcc.NewService(table, 60*time.Second, c.logger)
	transfer := &DCCTransfer{ln: ln, Done: make(chan error, 1)}

	serveDone := make(chan struct{})
	go func() {
		svc.Serve(ln)
		close(serveDone)
	}()
	// The local pump closes the pipe as soon as r is exhausted, which can
	// be before the peer connects, so the listener stays open until the
	// receiving connection's handler has removed the pipe from the table.
	go func() {
		<-pipe.Done()
		tick := time.NewTicker(50 * time.Millisecond)
		defer tick.Stop()
		for table.Len() > 0 {
			select {
			case <-serveDone:
				return
			case <-tick.C:
			}
		}
		ln.Close()
	}()
	go pumpLocalFileIntoPipe(r, pipe, transfer.Done)

	offer := formatDCCSend(filename, localIP, port, size, token)
	if err := c.send("PRIVMSG", nick, offer); err != nil {
		pipe.Close()
		ln.Close()
		return nil, err
	}
	return transfer, nil
}

func pumpLocalFileIntoPipe(r io.Reader, pipe *dcc.Pipe, done chan<- error) {
	buf := make([]byte, dcc.MaxPayload)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !pipe.Push(chunk) {
				done <- fmt.Errorf("clientcore: transfer aborted")
				return
			}
		}
		if err == io.EOF {
			pipe.Close()
			done <- nil
			return
		}
		if err != nil {
			pipe.Close()
			done <- err
			return
		}
	}
}

// AcceptDCC dials the sender's offered address, completes the HELLO
// handshake as RECEIVER, and writes each incoming chunk to dest until the
// transfer ends.
func (c *Client) AcceptDCC(offer DCCOffer, dest io.Writer) error {
	addr := net.JoinHostPort(offer.IP.String(), strconv.Itoa(offer.Port))
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("clientcore: dialing dcc sender: %w", err)
	}
	defer nc.Close()

	hello := dcc.Frame{Opcode: dcc.OpHello, Payload: dcc.EncodeHello(dcc.RoleReceiver, offer.Token, offer.Filename, uint64(offer.Size))}
	if err := dcc.WriteFrame(nc, hello); err != nil {
		return err
	}

	for {
		f, err := dcc.ReadFrame(nc)
		if err != nil {
			return fmt.Errorf("clientcore: reading dcc frame: %w", err)
		}
		switch f.Opcode {
		case dcc.OpData:
			if _, err := dest.Write(f.Payload); err != nil {
				return err
			}
			if err := dcc.WriteFrame(nc, dcc.Frame{Opcode: dcc.OpAck}); err != nil {
				return err
			}
		case dcc.OpEOF:
			return nil
		case dcc.OpError:
			return fmt.Errorf("clientcore: sender reported error: %s", dcc.DecodeErrorCode(f.Payload))
		default:
			return fmt.Errorf("clientcore: unexpected opcode %v mid-transfer", f.Opcode)
		}
	}
}

func listenInRange(min, max int) (net.Listener, int, error) {
	if min <= 0 || max < min {
		ln, err := net.Listen("tcp", ":0")
		if err != nil {
			return nil, 0, err
		}
		return ln, ln.Addr().(*net.TCPAddr).Port, nil
	}
	for port := min; port <= max; port++ {
		ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
		if err == nil {
			return ln, port, nil
		}
	}
	return nil, 0, fmt.Errorf("clientcore: no free port in range %d-%d", min, max)
}
