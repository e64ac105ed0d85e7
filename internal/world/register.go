package world

import (
	"regexp"
	"time"
)

// nickRE matches spec.md §3's nickname grammar:
// [A-Za-z\[\]\\`_^{|}][A-Za-z0-9\[\]\\`_^{|}-]{0,8}
var nickRE = regexp.MustCompile(`^[A-Za-z\[\]\\` + "`" + `_^{|}][A-Za-z0-9\[\]\\` + "`" + `_^{|}-]{0,8}$`)

// ValidNick reports whether a nick matches the server's grammar.
func ValidNick(n string) bool {
	return nickRE.MatchString(n)
}

// SetNick attempts to claim a nick for a not-yet-registered session
// (accumulating through the PASS/NICK/USER pre-registration phase; see
// internal/session). It does not complete registration by itself.
func (w *World) SetNick(id SessionID, nick string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !ValidNick(nick) {
		return numErr(ERR_ERRONEUSNICKNAME, nick, "Erroneous nickname")
	}

	folded := w.Casefold(nick)
	if existing, exists := w.nicks[folded]; exists && existing != id {
		return numErr(ERR_NICKNAMEINUSE, nick, "Nickname is already in use")
	}

	s, ok := w.sessions[id]
	if !ok {
		return numErr(ERR_NOTREGISTERED, "*", "Unknown connection")
	}

	if len(s.Nick) > 0 {
		delete(w.nicks, w.Casefold(s.Nick))
	}
	w.nicks[folded] = id
	s.Nick = nick

	return nil
}

// CheckPassword validates a PASS-supplied password against the server's
// configured password, if any is configured.
func (w *World) CheckPassword(given string) error {
	w.mu.RLock()
	pw := w.cfg.Password
	w.mu.RUnlock()
	if pw == "" {
		return nil
	}
	if given != pw {
		return numErr(ERR_PASSWDMISMATCH, "Password incorrect")
	}
	return nil
}

// RegistrationInfo bundles what CompleteRegistration needs once NICK and
// USER have both arrived.
type RegistrationInfo struct {
	User string
	Real string
}

// CompleteRegistration marks a session fully registered: nick, user, and
// realname are now all non-null, per spec.md §3's client invariant.
func (w *World) CompleteRegistration(id SessionID, info RegistrationInfo) error {
	w.mu.Lock()
	s, ok := w.sessions[id]
	if !ok {
		w.mu.Unlock()
		return numErr(ERR_NOTREGISTERED, "*", "Unknown connection")
	}
	s.User = info.User
	s.Real = info.Real
	s.Registered = true
	now := time.Now()
	s.LastActivity = now
	s.LastHeartbeat = now
	w.mu.Unlock()
	return nil
}

// ChangeNick renames an already-registered session, atomically: no
// observer ever sees both the old and the new nick live at once (spec.md
// §5 ordering guarantee). It fans out NICK to every channel peer exactly
// once each, and records the prior identity in WHOWAS history.
func (w *World) ChangeNick(id SessionID, newNick string) error {
	var msgs []outboundMsg

	w.mu.Lock()
	if !ValidNick(newNick) {
		w.mu.Unlock()
		return numErr(ERR_ERRONEUSNICKNAME, newNick, "Erroneous nickname")
	}

	folded := w.Casefold(newNick)
	if existing, exists := w.nicks[folded]; exists && existing != id {
		w.mu.Unlock()
		return numErr(ERR_NICKNAMEINUSE, newNick, "Nickname is already in use")
	}

	s, ok := w.sessions[id]
	if !ok {
		w.mu.Unlock()
		return numErr(ERR_NOTREGISTERED, "*", "Unknown connection")
	}

	oldNick := s.Nick
	oldUhost := s.NickUhost()

	delete(w.nicks, w.Casefold(oldNick))
	w.nicks[folded] = id
	s.Nick = newNick

	if s.Registered {
		w.whowas.push(w.Casefold(oldNick), NickHistoryEntry{
			Uhost:     oldUhost,
			Timestamp: time.Now(),
			Server:    w.cfg.ServerName,
		})

		peers := w.sharedChannelPeersLocked(id)
		peers[id] = struct{}{}
		for peerID := range peers {
			msgs = append(msgs, outboundMsg{
				to:      peerID,
				prefix:  oldUhost,
				command: "NICK",
				params:  []string{newNick},
			})
		}
	}
	w.mu.Unlock()

	w.flush(msgs)
	return nil
}
