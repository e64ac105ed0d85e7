package world

import (
	"sync"
	"time"

	"github.com/catbox-irc/modernd/internal/casefold"
	"github.com/catbox-irc/modernd/internal/isupport"
)

// Outbox is how the World delivers messages to sessions without knowing
// anything about sockets. The World computes the set of recipients under
// its own lock, releases the lock, and only then calls Send for each
// recipient (spec.md §5: "No blocking call is ever made while holding the
// WorldModel write lock").
type Outbox interface {
	Send(id SessionID, command string, params []string)
	// SendRaw is used for the few messages that need a source other than
	// the server name (NICK, JOIN, PART, PRIVMSG, etc. are "from" a
	// client).
	SendRaw(id SessionID, prefix, command string, params []string)
}

// outboundMsg is an internal queued send, computed under lock and flushed
// after the lock is released.
type outboundMsg struct {
	to      SessionID
	prefix  string // "" means "from the server"
	command string
	params  []string
}

// Config bundles the fixed, rarely-changing settings the World needs to
// validate and format things.
type Config struct {
	ServerName   string
	Casemapping  casefold.Mapping
	NickLen      int
	ChannelLen   int
	TopicLen     int
	Prefix       isupport.PrefixRank
	ChanModes    isupport.ChanModes
	ExceptsChar  byte
	InvexChar    byte
	Password     string            // server connection password, "" if none
	Opers        map[string]string // oper name -> password
	WhowasLimit  int
}

// World is the authoritative in-memory state for the server: sessions,
// nickname index, channels, and nickname history, all behind a single
// coarse RWMutex, per spec.md §5's "single-writer/many-reader" policy.
type World struct {
	cfg Config

	mu sync.RWMutex

	sessions map[SessionID]*Session
	nicks    map[string]SessionID // casefolded nick -> id
	channels map[string]*Channel  // casefolded channel name -> *Channel

	// memberOf tracks, for each session, the set of canonical channel
	// names it belongs to -- the SessionID -> set<ChannelName> half of
	// the bidirectional index described in spec.md §9.
	memberOf map[SessionID]map[string]struct{}

	whowas *whowasHistory

	outbox Outbox
}

// New constructs an empty World.
func New(cfg Config, outbox Outbox) *World {
	if cfg.WhowasLimit <= 0 {
		cfg.WhowasLimit = 200
	}
	return &World{
		cfg:      cfg,
		sessions: map[SessionID]*Session{},
		nicks:    map[string]SessionID{},
		channels: map[string]*Channel{},
		memberOf: map[SessionID]map[string]struct{}{},
		whowas:   newWhowasHistory(cfg.WhowasLimit),
		outbox:   outbox,
	}
}

// Casefold exposes the configured casemapping for callers (e.g. the
// session layer validating a NICK before calling SetNick/ChangeNick).
func (w *World) Casefold(s string) string {
	return casefold.Normalize(w.cfg.Casemapping, s)
}

func (w *World) foldChannel(s string) string {
	return casefold.NormalizeChannel(w.cfg.Casemapping, s)
}

// AddSession registers a brand-new, not-yet-registered connection and
// returns its session handle.
func (w *World) AddSession(id SessionID, remoteAddr string) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	s := &Session{
		ID:            id,
		RemoteAddr:    remoteAddr,
		LastActivity:  now,
		LastHeartbeat: now,
		Modes:         map[byte]struct{}{},
	}
	w.sessions[id] = s
	return s
}

// Session returns the live session pointer, not a copy (callers must not
// mutate it outside the World's own methods; this is for read-only
// inspection such as heartbeat scheduling).
func (w *World) Session(id SessionID) (*Session, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sessions[id]
	return s, ok
}

// Touch records that a session said something, for idle-timeout purposes.
func (w *World) Touch(id SessionID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.sessions[id]; ok {
		s.LastActivity = time.Now()
	}
}

// flush sends queued outbound messages after the caller has released the
// World's lock.
func (w *World) flush(msgs []outboundMsg) {
	for _, m := range msgs {
		if m.prefix == "" {
			w.outbox.Send(m.to, m.command, m.params)
		} else {
			w.outbox.SendRaw(m.to, m.prefix, m.command, m.params)
		}
	}
}

// channelRecipientsLocked returns the recipient set for a channel broadcast,
// optionally skipping one session id. Caller must hold at least a read
// lock.
func (w *World) channelRecipientsLocked(ch *Channel, except SessionID, skipExcept bool) []SessionID {
	out := make([]SessionID, 0, len(ch.Members))
	for id := range ch.Members {
		if skipExcept && id == except {
			continue
		}
		out = append(out, id)
	}
	return out
}

// sharedChannelPeersLocked returns the set of session ids (excluding the
// session itself) that share at least one channel with it. Caller must
// hold the World's lock.
func (w *World) sharedChannelPeersLocked(id SessionID) map[SessionID]struct{} {
	peers := map[SessionID]struct{}{}
	for chanName := range w.memberOf[id] {
		ch, ok := w.channels[chanName]
		if !ok {
			continue
		}
		for memberID := range ch.Members {
			if memberID != id {
				peers[memberID] = struct{}{}
			}
		}
	}
	return peers
}
