package world

import "time"

// WhoEntry is one RPL_WHOREPLY row.
type WhoEntry struct {
	Channel  string
	User     string
	Host     string
	Server   string
	Nick     string
	Away     bool
	Operator bool
	Prefix   byte
	RealName string
}

// Who enumerates the members of a channel for the WHO command. spec.md §6
// lists WHO among the supported commands; this server accepts only the
// channel-mask form, matching the teacher's whoCommand ("Contrary to RFC
// 2812, I support only 'WHO #channel'").
func (w *World) Who(id SessionID, channelName string) (display string, entries []WhoEntry, err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	folded := w.foldChannel(channelName)
	ch, exists := w.channels[folded]
	if !exists {
		return channelName, nil, numErr(ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}

	for memberID, member := range ch.Members {
		s, ok := w.sessions[memberID]
		if !ok {
			continue
		}
		entries = append(entries, WhoEntry{
			Channel:  ch.DisplayName,
			User:     s.User,
			Host:     s.RemoteAddr,
			Server:   w.cfg.ServerName,
			Nick:     s.Nick,
			Away:     s.HasAway,
			Operator: s.Operator,
			Prefix:   w.cfg.Prefix.Symbol(member.HighestRole(w.cfg.Prefix)),
			RealName: s.Real,
		})
	}

	return ch.DisplayName, entries, nil
}

// WhoisInfo is the material needed to emit the RPL_WHOIS* sequence.
type WhoisInfo struct {
	Nick        string
	User        string
	Host        string
	RealName    string
	Server      string
	ServerInfo  string
	Operator    bool
	Away        string
	HasAway     bool
	IdleSeconds int64
	SignonTime  time.Time
	Channels    []string // display names, with rank prefix if any
}

// Whois looks up a registered user's public information.
func (w *World) Whois(nick string, serverInfo string) (WhoisInfo, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	id, exists := w.nicks[w.Casefold(nick)]
	if !exists {
		return WhoisInfo{}, numErr(ERR_NOSUCHNICK, nick, "No such nick/channel")
	}
	s, ok := w.sessions[id]
	if !ok || !s.Registered {
		return WhoisInfo{}, numErr(ERR_NOSUCHNICK, nick, "No such nick/channel")
	}

	info := WhoisInfo{
		Nick:        s.Nick,
		User:        s.User,
		Host:        s.RemoteAddr,
		RealName:    s.Real,
		Server:      w.cfg.ServerName,
		ServerInfo:  serverInfo,
		Operator:    s.Operator,
		Away:        s.Away,
		HasAway:     s.HasAway,
		IdleSeconds: int64(time.Since(s.LastActivity).Seconds()),
		SignonTime:  s.LastHeartbeat,
	}

	for chanName := range w.memberOf[id] {
		if ch, exists := w.channels[chanName]; exists {
			member := ch.Members[id]
			sym := w.cfg.Prefix.Symbol(member.HighestRole(w.cfg.Prefix))
			name := ch.DisplayName
			if sym != 0 {
				name = string(sym) + name
			}
			info.Channels = append(info.Channels, name)
		}
	}

	return info, nil
}

// Whowas looks up a nickname's prior identities, most recent first.
func (w *World) Whowas(nick string) []NickHistoryEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]NickHistoryEntry(nil), w.whowas.lookup(w.Casefold(nick))...)
}
