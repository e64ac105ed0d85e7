// Package ircd wires the WorldModel and SessionFSM to real TCP
// connections: an accept loop, one reader and one writer goroutine per
// connection, and a bounded per-session send queue whose overflow
// disconnects the slow reader, mirroring the teacher's net.go/ircd.go
// split (acceptConnections, readLoop/writeLoop per Client, a send channel
// per Client) generalized to the WorldModel's Outbox interface.
package ircd

import (
	"log"
	"net"
	"sync"

	"github.com/catbox-irc/modernd/internal/ircmsg"
	"github.com/catbox-irc/modernd/internal/session"
	"github.com/catbox-irc/modernd/internal/world"
)

// sendQueueSize bounds each connection's outbound buffer. A slow or dead
// reader that never drains its queue gets disconnected rather than
// blocking the sender, per spec.md §5's "no blocking call is ever made
// while holding the WorldModel write lock" carried through to the
// transport layer.
const sendQueueSize = 256

type conn struct {
	id   world.SessionID
	nc   net.Conn
	out  chan ircmsg.Message
	sess *session.Session

	closeOnce sync.Once
}

func (c *conn) Enqueue(m ircmsg.Message) {
	select {
	case c.out <- m:
	default:
		// Queue is full: the reader on the other end isn't keeping up.
		// Tear the session down through the FSM so the WorldModel's state
		// (nick, channel memberships) gets cleaned up, not just the
		// socket.
		if c.sess != nil {
			c.sess.Quit("Send queue overflow")
		} else {
			c.Terminate()
		}
	}
}

func (c *conn) Terminate() {
	c.closeOnce.Do(func() {
		close(c.out)
	})
}

// Hub is the live connection registry. It implements world.Outbox by
// routing a session id to that connection's send queue.
type Hub struct {
	mu     sync.RWMutex
	conns  map[world.SessionID]*conn
	logger *log.Logger
}

// NewHub constructs an empty Hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{conns: map[world.SessionID]*conn{}, logger: logger}
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.id] = c
}

func (h *Hub) remove(id world.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

func (h *Hub) get(id world.SessionID) (*conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// Send implements world.Outbox.
func (h *Hub) Send(id world.SessionID, command string, params []string) {
	if c, ok := h.get(id); ok {
		c.Enqueue(ircmsg.Message{Command: command, Params: params})
	}
}

// SendRaw implements world.Outbox.
func (h *Hub) SendRaw(id world.SessionID, prefix, command string, params []string) {
	if c, ok := h.get(id); ok {
		c.Enqueue(ircmsg.Message{Prefix: prefix, Command: command, Params: params})
	}
}
