// Package world holds the authoritative in-memory state of the server:
// sessions, channels, memberships, modes, ban/except/invite-exception
// lists, and nickname history. Mirrors the teacher's Client/UserClient/
// Channel split (client.go, user_client.go, channel.go) but folded into
// a single lockable model addressed by handles (SessionID, channel name)
// rather than a pointer graph, per spec.md §9's design note.
package world

import (
	"fmt"
	"time"

	"github.com/catbox-irc/modernd/internal/casefold"
	"github.com/catbox-irc/modernd/internal/isupport"
)

// SessionID uniquely and monotonically identifies a connection for the
// lifetime of the process.
type SessionID uint64

// Session holds state about a single client connection. It is owned by
// the World and must only be mutated while holding the World's lock.
type Session struct {
	ID         SessionID
	RemoteAddr string

	Registered bool

	// Nick is blank until a NICK is accepted, which can happen before
	// registration completes.
	Nick string
	User string
	Real string

	Away      string
	HasAway   bool
	Operator  bool

	LastActivity  time.Time
	LastHeartbeat time.Time
	PendingPing   string

	// Modes is the set of single-character user modes, e.g. {'i','o'}.
	Modes map[byte]struct{}
}

func (s *Session) hasMode(m byte) bool {
	_, ok := s.Modes[m]
	return ok
}

// NickUhost renders the nick!user@host form used as a message prefix.
func (s *Session) NickUhost() string {
	return fmt.Sprintf("%s!%s@%s", s.Nick, s.User, s.RemoteAddr)
}

// Member is one channel membership record: the set of roles a session
// holds in that channel.
type Member struct {
	Roles map[byte]struct{}
}

func (m *Member) hasRole(r byte) bool {
	_, ok := m.Roles[r]
	return ok
}

// HighestRole returns the highest-ranked role letter a member holds,
// using the server's PREFIX rank table, or 0 if the member holds none.
func (m *Member) HighestRole(ranks isupport.PrefixRank) byte {
	best := byte(0)
	bestRank := 0
	for r := range m.Roles {
		if rk := ranks.Rank(r); rk > bestRank {
			bestRank = rk
			best = r
		}
	}
	return best
}

// Channel holds everything associated with one channel.
type Channel struct {
	// Name is the canonical (casefolded) name, used as the map key
	// everywhere. DisplayName preserves the case first used to create it.
	Name        string
	DisplayName string

	Topic      string
	TopicSetBy string
	TopicSetAt time.Time
	HasTopic   bool

	Created time.Time

	// Modes is the set of flag (argument-less) channel modes currently
	// set: a subset of {'i','m','s','t','n','p'}.
	Modes map[byte]struct{}

	HasLimit bool
	Limit    int

	HasKey bool
	Key    string

	// Lists hold extended masks (nick!user@host globs). Order is
	// insertion order, matching spec.md §4.3's tie-break rule for list
	// mode echoes.
	Bans    []string
	Excepts []string
	Invex   []string

	// Invited holds casefolded nicknames granted a one-shot INVITE,
	// independent of the Invex mask list.
	Invited map[string]struct{}

	// Members maps session id to that session's membership record.
	Members map[SessionID]*Member
}

func (c *Channel) hasMode(m byte) bool {
	_, ok := c.Modes[m]
	return ok
}

// NickHistoryEntry is one prior identity recorded for WHOWAS.
type NickHistoryEntry struct {
	Uhost     string
	Timestamp time.Time
	Server    string
}

// maskMatches reports whether mask (a nick!user@host glob with '*' and
// '?' wildcards) matches the given literal nick!user@host string. Folding
// is caller's responsibility for the nick portion if desired; catbox-style
// servers generally compare host/user case-sensitively and nick
// case-insensitively, so callers should casefold the nick component of
// both strings before calling if strict RFC behavior is wanted. Apart
// from wildcards, this implementation compares ASCII letters
// case-insensitively and every other byte exactly, matching the
// teacher's general "keep it simple" extended-mask style.
func maskMatches(mask, full string) bool {
	return globMatch(mask, full)
}

func globMatch(pattern, s string) bool {
	return globMatchFold(pattern, s, casefold.Mapping(""))
}

func globMatchFold(pattern, s string, _ casefold.Mapping) bool {
	// Standard glob matching with '*' and '?', iterative (no regex
	// compile per call since ban lists are checked on every JOIN).
	var pi, si int
	var starIdx = -1
	var starS = -1

	for si < len(s) {
		if pi < len(pattern) && (pattern[pi] == '?' || toLowerByte(pattern[pi]) == toLowerByte(s[si])) {
			pi++
			si++
			continue
		}
		if pi < len(pattern) && pattern[pi] == '*' {
			starIdx = pi
			starS = si
			pi++
			continue
		}
		if starIdx != -1 {
			pi = starIdx + 1
			starS++
			si = starS
			continue
		}
		return false
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}

	return pi == len(pattern)
}

func toLowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
