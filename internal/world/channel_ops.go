package world

import "time"

// JoinResult carries what the caller (session layer) needs to send back
// to the joining client after a successful join: whether the channel was
// just created, plus a names snapshot.
type JoinResult struct {
	Created     bool
	DisplayName string
	HasTopic    bool
	Topic       string
	TopicSetBy  string
	Names       []NameEntry
}

// NameEntry is one member entry for a NAMES/JOIN reply.
type NameEntry struct {
	Nick   string
	Prefix byte // 0 if the member holds no ranked role
	rank   int  // used only to order entries; not part of the public shape
}

// Join adds a session to a channel, creating it if necessary (the first
// joiner becomes OP, matching spec.md §4.3; no other role is granted).
// Returns the same shape of
// numeric errors as spec.md §4.3 names: invite-only, channel key, user
// limit, and ban checks in that order, matching the teacher's ordering
// convention of cheapest/most-specific checks first.
func (w *World) Join(id SessionID, channelName, key string) (JoinResult, error) {
	var msgs []outboundMsg
	var result JoinResult

	w.mu.Lock()

	s, ok := w.sessions[id]
	if !ok {
		w.mu.Unlock()
		return result, numErr(ERR_NOTREGISTERED, "*", "Unknown connection")
	}

	folded := w.foldChannel(channelName)
	if !validChannelName(folded, w.cfg.ChannelLen) {
		w.mu.Unlock()
		return result, numErr(ERR_NOSUCHCHANNEL, channelName, "Invalid channel name")
	}

	if _, already := w.memberOf[id][folded]; already {
		w.mu.Unlock()
		return result, nil
	}

	ch, exists := w.channels[folded]
	created := false
	if !exists {
		ch = &Channel{
			Name:        folded,
			DisplayName: channelName,
			Created:     time.Now(),
			Modes:       map[byte]struct{}{'n': {}, 't': {}},
			Members:     map[SessionID]*Member{},
			Invited:     map[string]struct{}{},
		}
		w.channels[folded] = ch
		created = true
	} else {
		uhost := s.NickUhost()
		if ch.hasMode('i') {
			_, invited := ch.Invited[w.Casefold(s.Nick)]
			if !invited && !matchesAny(ch.Invex, uhost) {
				w.mu.Unlock()
				return result, numErr(ERR_INVITEONLYCHAN, channelName, "Cannot join channel (+i)")
			}
		}

		if ch.HasKey && ch.Key != key {
			w.mu.Unlock()
			return result, numErr(ERR_BADCHANNELKEY, channelName, "Cannot join channel (+k)")
		}

		if ch.HasLimit && len(ch.Members) >= ch.Limit {
			w.mu.Unlock()
			return result, numErr(ERR_CHANNELISFULL, channelName, "Cannot join channel (+l)")
		}

		if matchesAny(ch.Bans, uhost) && !matchesAny(ch.Excepts, uhost) {
			w.mu.Unlock()
			return result, numErr(ERR_BANNEDFROMCHAN, channelName, "Cannot join channel (+b)")
		}
	}

	roles := map[byte]struct{}{}
	if created {
		roles['o'] = struct{}{}
	}
	ch.Members[id] = &Member{Roles: roles}
	if w.memberOf[id] == nil {
		w.memberOf[id] = map[string]struct{}{}
	}
	w.memberOf[id][folded] = struct{}{}
	delete(ch.Invited, w.Casefold(s.Nick))

	uhost := s.NickUhost()
	for memberID := range ch.Members {
		msgs = append(msgs, outboundMsg{to: memberID, prefix: uhost, command: "JOIN", params: []string{ch.DisplayName}})
	}

	if created {
		msgs = append(msgs, outboundMsg{to: id, prefix: w.cfg.ServerName, command: "MODE", params: []string{ch.DisplayName, "+nt"}})
	}

	result = JoinResult{
		Created:     created,
		DisplayName: ch.DisplayName,
		HasTopic:    ch.HasTopic,
		Topic:       ch.Topic,
		TopicSetBy:  ch.TopicSetBy,
		Names:       w.namesSnapshotLocked(ch),
	}

	w.mu.Unlock()
	w.flush(msgs)
	return result, nil
}

// Part removes a session from a channel, broadcasting PART to every
// member (including the leaver). Destroys the channel if the leaver was
// the last member.
func (w *World) Part(id SessionID, channelName, reason string) error {
	var msgs []outboundMsg

	w.mu.Lock()
	folded := w.foldChannel(channelName)
	ch, exists := w.channels[folded]
	if !exists {
		w.mu.Unlock()
		return numErr(ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}
	if _, on := ch.Members[id]; !on {
		w.mu.Unlock()
		return numErr(ERR_NOTONCHANNEL, channelName, "You're not on that channel")
	}

	s := w.sessions[id]
	uhost := s.NickUhost()
	params := []string{ch.DisplayName}
	if reason != "" {
		params = append(params, reason)
	}
	for memberID := range ch.Members {
		msgs = append(msgs, outboundMsg{to: memberID, prefix: uhost, command: "PART", params: params})
	}

	w.removeMemberLocked(id, ch)
	w.mu.Unlock()
	w.flush(msgs)
	return nil
}

// Kick forcibly removes target from channel; requires the kicker to hold
// at least OP.
func (w *World) Kick(kicker SessionID, channelName, targetNick, reason string) error {
	var msgs []outboundMsg

	w.mu.Lock()
	folded := w.foldChannel(channelName)
	ch, exists := w.channels[folded]
	if !exists {
		w.mu.Unlock()
		return numErr(ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}

	kickerMember, onChan := ch.Members[kicker]
	if !onChan {
		w.mu.Unlock()
		return numErr(ERR_NOTONCHANNEL, channelName, "You're not on that channel")
	}
	if !w.hasOpPrivilegeLocked(kickerMember) {
		w.mu.Unlock()
		return numErr(ERR_CHANOPRIVSNEEDED, channelName, "You're not channel operator")
	}

	targetID, exists := w.nicks[w.Casefold(targetNick)]
	if !exists {
		w.mu.Unlock()
		return numErr(ERR_NOSUCHNICK, targetNick, "No such nick/channel")
	}
	if _, on := ch.Members[targetID]; !on {
		w.mu.Unlock()
		return numErr(ERR_USERNOTINCHANNEL, targetNick, "They aren't on that channel")
	}

	kickerS := w.sessions[kicker]
	params := []string{ch.DisplayName, targetNick}
	if reason != "" {
		params = append(params, reason)
	}
	for memberID := range ch.Members {
		msgs = append(msgs, outboundMsg{to: memberID, prefix: kickerS.NickUhost(), command: "KICK", params: params})
	}

	w.removeMemberLocked(targetID, ch)
	w.mu.Unlock()
	w.flush(msgs)
	return nil
}

// removeMemberLocked deletes a member from a channel, destroying the
// channel if it becomes empty. Caller must hold the World's write lock.
func (w *World) removeMemberLocked(id SessionID, ch *Channel) {
	delete(ch.Members, id)
	delete(w.memberOf[id], ch.Name)
	if len(w.memberOf[id]) == 0 {
		delete(w.memberOf, id)
	}
	if len(ch.Members) == 0 {
		delete(w.channels, ch.Name)
	}
}

// Quit disconnects a session entirely: fans out QUIT to every distinct
// peer sharing a channel, removes all channel memberships (destroying any
// now-empty channels), and frees the nickname. Safe to call on a session
// that never completed registration.
func (w *World) Quit(id SessionID, reason string) {
	var msgs []outboundMsg

	w.mu.Lock()
	s, ok := w.sessions[id]
	if !ok {
		w.mu.Unlock()
		return
	}

	if s.Registered {
		peers := w.sharedChannelPeersLocked(id)
		uhost := s.NickUhost()
		for peerID := range peers {
			msgs = append(msgs, outboundMsg{to: peerID, prefix: uhost, command: "QUIT", params: []string{reason}})
		}

		for chanName := range w.memberOf[id] {
			if ch, exists := w.channels[chanName]; exists {
				delete(ch.Members, id)
				if len(ch.Members) == 0 {
					delete(w.channels, chanName)
				}
			}
		}
		delete(w.memberOf, id)
	}

	if len(s.Nick) > 0 {
		delete(w.nicks, w.Casefold(s.Nick))
	}
	delete(w.sessions, id)
	w.mu.Unlock()

	w.flush(msgs)
}

func validChannelName(folded string, maxLen int) bool {
	if len(folded) == 0 || len(folded) > maxLen {
		return false
	}
	switch folded[0] {
	case '#', '&', '+', '!':
	default:
		return false
	}
	return len(folded) > 1
}

func matchesAny(masks []string, uhost string) bool {
	for _, m := range masks {
		if maskMatches(m, uhost) {
			return true
		}
	}
	return false
}
