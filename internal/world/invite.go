package world

// Invite grants a target nickname a one-shot exception to +i for a
// channel and pushes an INVITE message to them, per spec.md §4.3.
// Requires the inviter to be on the channel; if +i is set, requires OP.
func (w *World) Invite(id SessionID, targetNick, channelName string) (displayChannel string, err error) {
	w.mu.Lock()

	s, ok := w.sessions[id]
	if !ok {
		w.mu.Unlock()
		return "", numErr(ERR_NOTREGISTERED, "*", "Unknown connection")
	}

	folded := w.foldChannel(channelName)
	ch, exists := w.channels[folded]
	if !exists {
		w.mu.Unlock()
		return "", numErr(ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}

	member, onChan := ch.Members[id]
	if !onChan {
		w.mu.Unlock()
		return "", numErr(ERR_NOTONCHANNEL, channelName, "You're not on that channel")
	}

	if ch.hasMode('i') && !w.hasOpPrivilegeLocked(member) {
		w.mu.Unlock()
		return "", numErr(ERR_CHANOPRIVSNEEDED, channelName, "You're not channel operator")
	}

	targetID, exists := w.nicks[w.Casefold(targetNick)]
	if !exists {
		w.mu.Unlock()
		return "", numErr(ERR_NOSUCHNICK, targetNick, "No such nick/channel")
	}
	if _, already := ch.Members[targetID]; already {
		w.mu.Unlock()
		return "", numErr(ERR_USERONCHANNEL, targetNick, "is already on channel")
	}

	ch.Invited[w.Casefold(targetNick)] = struct{}{}
	targetSess := w.sessions[targetID]
	uhost := s.NickUhost()
	display := ch.DisplayName

	w.mu.Unlock()

	w.outbox.SendRaw(targetID, uhost, "INVITE", []string{targetSess.Nick, display})
	return display, nil
}
