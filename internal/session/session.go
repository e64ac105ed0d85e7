// Package session implements the per-connection protocol state machine
// described in spec.md §4.4: registration accumulation, verb dispatch,
// and the heartbeat/idle-timeout check. It knows nothing about sockets;
// internal/ircd supplies a Writer that queues messages for the actual
// connection.
package session

import (
	"time"

	"github.com/catbox-irc/modernd/internal/ircmsg"
	"github.com/catbox-irc/modernd/internal/isupport"
	"github.com/catbox-irc/modernd/internal/world"
)

// State is one of the SessionFSM states from spec.md §4.4.
type State int

const (
	Connected State = iota
	CapNegotiating
	AwaitingNick
	AwaitingUser
	Registered
	Quitting
)

// Writer is how a Session delivers bytes back to its own connection. The
// ircd package implements this over a bounded per-session queue.
type Writer interface {
	Enqueue(m ircmsg.Message)
	// Terminate is called once, when the session should close its
	// socket after flushing whatever is already queued.
	Terminate()
}

// Config bundles the fixed, server-wide settings a session needs to
// format replies.
type Config struct {
	ServerName  string
	Version     string
	CreatedDate string
	ServerInfo  string
	MOTD        []string // pre-split lines; nil/empty means "no MOTD"
	ISupport    *isupport.Set
	ChanModes   isupport.ChanModes
	UserModes   string // advertised in RPL_MYINFO, e.g. "iwo"
	ChanModeStr string // advertised in RPL_MYINFO, e.g. "ntispkl"
	PingFreq    time.Duration
	IdleTimeout time.Duration
	ExceptsChar byte
	InvexChar   byte
}

// Session is one connection's protocol state machine.
type Session struct {
	ID         world.SessionID
	RemoteAddr string
	State      State

	world *world.World
	out   Writer
	cfg   Config

	// Pre-registration accumulator (spec.md §4.4): PASS, CAP, NICK, and
	// USER may arrive in any order; registration completes once NICK and
	// USER have both arrived, any required PASS has matched, and CAP
	// negotiation (if started) has ended.
	passOK      bool
	passRequired bool
	gotNick     bool
	gotUser     bool
	capPending  bool

	pendingUser string
	pendingReal string

	lastPingToken string
	pingSentAt    time.Time
}

// New constructs a Session bound to a World, ready to receive its first
// line.
func New(id world.SessionID, remoteAddr string, w *world.World, out Writer, cfg Config, passRequired bool) *Session {
	w.AddSession(id, remoteAddr)
	return &Session{
		ID:           id,
		RemoteAddr:   remoteAddr,
		State:        Connected,
		world:        w,
		out:          out,
		cfg:          cfg,
		passRequired: passRequired,
		passOK:       !passRequired,
	}
}

// numeric sends a numeric reply, prefixing it with the client's current
// nick (or "*" if none yet), matching the teacher's messageClient
// convention for numerics.
func (s *Session) numeric(code string, params ...string) {
	nick := s.currentNick()
	full := append([]string{nick}, params...)
	s.out.Enqueue(ircmsg.Message{Prefix: s.cfg.ServerName, Command: code, Params: full})
}

func (s *Session) currentNick() string {
	if sess, ok := s.world.Session(s.ID); ok && sess.Nick != "" {
		return sess.Nick
	}
	return "*"
}

func (s *Session) fromServer(command string, params ...string) {
	s.out.Enqueue(ircmsg.Message{Prefix: s.cfg.ServerName, Command: command, Params: params})
}

func (s *Session) fromSelf(command string, params ...string) {
	sess, ok := s.world.Session(s.ID)
	prefix := s.cfg.ServerName
	if ok {
		prefix = sess.NickUhost()
	}
	s.out.Enqueue(ircmsg.Message{Prefix: prefix, Command: command, Params: params})
}

// HandleLine parses and dispatches one raw protocol line. Malformed input
// is reported with ERR_UNKNOWNERROR and otherwise ignored, per spec.md
// §4.2's error handling rule for the client-facing path.
func (s *Session) HandleLine(raw string) {
	m, err := ircmsg.Parse(raw)
	if err != nil {
		s.numeric(world.ERR_UNKNOWNERROR, "*", "Could not parse command")
		return
	}
	s.Handle(m)
}

// Handle dispatches one already-parsed message.
func (s *Session) Handle(m ircmsg.Message) {
	if s.State == Quitting {
		return
	}

	s.world.Touch(s.ID)

	if m.Prefix != "" {
		s.fromServer("ERROR", "Do not send a prefix")
		return
	}

	if handler, ok := alwaysAllowed[m.Command]; ok {
		handler(s, m)
		return
	}

	if s.State != Registered {
		s.numeric(world.ERR_NOTREGISTERED, "You have not registered")
		return
	}

	handler, ok := registeredVerbs[m.Command]
	if !ok {
		s.numeric(world.ERR_UNKNOWNCOMMAND, m.Command, "Unknown command")
		return
	}
	handler(s, m)
}

// Tick is called periodically by the server loop's heartbeat (spec.md
// §4.4's "heartbeat"). now is injected so this stays pure and testable.
func (s *Session) Tick(now time.Time) {
	if s.State == Quitting {
		return
	}

	sess, ok := s.world.Session(s.ID)
	if !ok {
		return
	}

	idle := now.Sub(sess.LastActivity)

	if !sess.Registered {
		if idle > s.cfg.IdleTimeout {
			s.Quit("Idle too long")
		}
		return
	}

	if s.lastPingToken != "" {
		if now.Sub(s.pingSentAt) > s.cfg.IdleTimeout {
			s.Quit("Ping timeout")
		}
		return
	}

	if idle < s.cfg.PingFreq {
		return
	}

	s.lastPingToken = s.cfg.ServerName + "-" + now.Format(time.RFC3339Nano)
	s.pingSentAt = now
	s.fromServer("PING", s.lastPingToken)
}

// Pong clears the pending ping token on a matching PONG.
func (s *Session) pong(token string) {
	if token == s.lastPingToken {
		s.lastPingToken = ""
	}
}

// Quit transitions the session to QUITTING, broadcasts QUIT to peers
// exactly once, and tells the connection layer to close. Safe to call
// more than once; only the first call has any effect.
func (s *Session) Quit(reason string) {
	if s.State == Quitting {
		return
	}
	s.State = Quitting
	s.world.Quit(s.ID, reason)
	s.out.Enqueue(ircmsg.Message{Command: "ERROR", Params: []string{reason}})
	s.out.Terminate()
}
