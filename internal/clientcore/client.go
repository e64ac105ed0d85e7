// Package clientcore implements the client side of the protocol: framing
// lines over a TCP connection, dispatching incoming messages to a caller-
// supplied handler, and exposing the command surface (join/part/msg/...)
// that cmd/irc-client's line-editing loop drives. It mirrors the
// teacher's own Client struct shape (a connection plus a read loop
// feeding a channel) but, since this is the client rather than the
// server half, there is exactly one connection and no WorldModel.
package clientcore

import (
	"bufio"
	"log"
	"net"

	"github.com/catbox-irc/modernd/internal/ircmsg"
)

// EventHandler receives everything the client reads off the wire.
type EventHandler interface {
	HandleMessage(m ircmsg.Message)
	// HandleDCCOffer is called whenever an incoming PRIVMSG carries a CTCP
	// DCC SEND request; the handler decides whether and how to accept it
	// (typically by calling Client.AcceptDCC in another goroutine).
	HandleDCCOffer(from string, offer DCCOffer)
}

// Client is one connection to a server.
type Client struct {
	nc      net.Conn
	w       *bufio.Writer
	handler EventHandler
	logger  *log.Logger

	DCCPortMin int
	DCCPortMax int
}

// Dial connects to addr and returns a Client ready to Run.
func Dial(addr string, handler EventHandler, dccPortMin, dccPortMax int, logger *log.Logger) (*Client, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		nc:         nc,
		w:          bufio.NewWriter(nc),
		handler:    handler,
		logger:     logger,
		DCCPortMin: dccPortMin,
		DCCPortMax: dccPortMax,
	}, nil
}

// NewOnConn wraps an already-established connection (used by tests with
// net.Pipe).
func NewOnConn(nc net.Conn, handler EventHandler, dccPortMin, dccPortMax int, logger *log.Logger) *Client {
	return &Client{
		nc:         nc,
		w:          bufio.NewWriter(nc),
		handler:    handler,
		logger:     logger,
		DCCPortMin: dccPortMin,
		DCCPortMax: dccPortMax,
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.nc.Close()
}

// Run reads lines until the connection closes or errors, dispatching each
// parsed message to the handler. CTCP DCC SEND requests embedded in a
// PRIVMSG are intercepted and surfaced via HandleDCCOffer instead of
// HandleMessage.
func (c *Client) Run() error {
	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 4096), 8192)
	for scanner.Scan() {
		// bufio.ScanLines strips the line's terminator; ircmsg.Parse
		// requires one, so put a CRLF back before handing the line off.
		m, err := ircmsg.Parse(scanner.Text() + "\r\n")
		if err != nil {
			c.logf("malformed line from server: %s", err)
			continue
		}

		if m.Command == "PRIVMSG" && len(m.Params) == 2 {
			if offer, ok := ParseDCCSendOffer(m.Params[1]); ok {
				c.handler.HandleDCCOffer(m.SourceNick(), offer)
				continue
			}
		}

		c.handler.HandleMessage(m)
	}
	return scanner.Err()
}

func (c *Client) sendLine(m ircmsg.Message) error {
	line, encodeErr := m.Encode()
	if _, err := c.w.WriteString(line); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}
	return encodeErr
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
