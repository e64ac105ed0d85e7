package world

import "strings"

// Privmsg delivers a message to a channel or nickname target. NOTICE
// reuses this with isNotice=true, which suppresses all automatic error
// replies per spec.md §4.3/§7 ("NOTICE never generates automatic error
// replies").
func (w *World) Privmsg(id SessionID, target, text string, isNotice bool) (awayMsg string, err error) {
	var msgs []outboundMsg

	w.mu.RLock()
	s, ok := w.sessions[id]
	if !ok {
		w.mu.RUnlock()
		return "", numErr(ERR_NOTREGISTERED, "*", "Unknown connection")
	}

	command := "PRIVMSG"
	if isNotice {
		command = "NOTICE"
	}

	if isChannelTarget(target) {
		folded := w.foldChannel(target)
		ch, exists := w.channels[folded]
		if !exists {
			w.mu.RUnlock()
			if isNotice {
				return "", nil
			}
			return "", numErr(ERR_NOSUCHCHANNEL, target, "No such channel")
		}

		member, onChan := ch.Members[id]

		if !onChan && ch.hasMode('n') {
			w.mu.RUnlock()
			if isNotice {
				return "", nil
			}
			return "", numErr(ERR_CANNOTSENDTOCHAN, target, "Cannot send to channel")
		}

		if onChan && ch.hasMode('m') && !w.hasVoicePrivilegeLocked(member) {
			w.mu.RUnlock()
			if isNotice {
				return "", nil
			}
			return "", numErr(ERR_CANNOTSENDTOCHAN, target, "Cannot send to channel")
		}

		uhost := s.NickUhost()
		for memberID := range ch.Members {
			if memberID == id {
				continue
			}
			msgs = append(msgs, outboundMsg{to: memberID, prefix: uhost, command: command, params: []string{ch.DisplayName, text}})
		}
		w.mu.RUnlock()
		w.flush(msgs)
		return "", nil
	}

	targetID, exists := w.nicks[w.Casefold(target)]
	if !exists {
		w.mu.RUnlock()
		if isNotice {
			return "", nil
		}
		return "", numErr(ERR_NOSUCHNICK, target, "No such nick/channel")
	}

	targetSession := w.sessions[targetID]
	uhost := s.NickUhost()
	msgs = append(msgs, outboundMsg{to: targetID, prefix: uhost, command: command, params: []string{targetSession.Nick, text}})
	away := ""
	if targetSession.HasAway {
		away = targetSession.Away
	}
	w.mu.RUnlock()

	w.flush(msgs)
	return away, nil
}

func isChannelTarget(target string) bool {
	if target == "" {
		return false
	}
	return strings.ContainsRune("#&+!", rune(target[0]))
}
