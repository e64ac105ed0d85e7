package world

import "time"

// Topic reads a channel's topic; always allowed to any caller, matching
// spec.md §4.3 ("read always allowed").
func (w *World) Topic(id SessionID, channelName string) (display string, has bool, topic string, setBy string, setAt time.Time, err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	folded := w.foldChannel(channelName)
	ch, exists := w.channels[folded]
	if !exists {
		return channelName, false, "", "", time.Time{}, numErr(ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}
	return ch.DisplayName, ch.HasTopic, ch.Topic, ch.TopicSetBy, ch.TopicSetAt, nil
}

// SetTopic changes a channel's topic. Requires OP unless +t is clear, in
// which case any member may set it (spec.md §4.3).
func (w *World) SetTopic(id SessionID, channelName, newTopic string, maxLen int) error {
	var msgs []outboundMsg

	w.mu.Lock()
	folded := w.foldChannel(channelName)
	ch, exists := w.channels[folded]
	if !exists {
		w.mu.Unlock()
		return numErr(ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}

	member, onChan := ch.Members[id]
	if !onChan {
		w.mu.Unlock()
		return numErr(ERR_NOTONCHANNEL, channelName, "You're not on that channel")
	}

	if ch.hasMode('t') && !w.hasOpPrivilegeLocked(member) {
		w.mu.Unlock()
		return numErr(ERR_CHANOPRIVSNEEDED, channelName, "You're not channel operator")
	}

	if len(newTopic) > maxLen {
		newTopic = newTopic[:maxLen]
	}

	s := w.sessions[id]
	ch.Topic = newTopic
	ch.HasTopic = true
	ch.TopicSetBy = s.NickUhost()
	ch.TopicSetAt = time.Now()

	for memberID := range ch.Members {
		msgs = append(msgs, outboundMsg{to: memberID, prefix: s.NickUhost(), command: "TOPIC", params: []string{ch.DisplayName, newTopic}})
	}

	w.mu.Unlock()
	w.flush(msgs)
	return nil
}
