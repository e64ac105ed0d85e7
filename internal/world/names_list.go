package world

import "sort"

// namesSnapshotLocked builds the ordered NAMES list for a channel: rank
// descending then lexicographic casefolded nick, per spec.md §4.3's
// tie-break rule. Caller must hold at least the World's read lock.
func (w *World) namesSnapshotLocked(ch *Channel) []NameEntry {
	entries := make([]NameEntry, 0, len(ch.Members))
	for id, member := range ch.Members {
		s, ok := w.sessions[id]
		if !ok {
			continue
		}
		role := member.HighestRole(w.cfg.Prefix)
		entries = append(entries, NameEntry{
			Nick:   s.Nick,
			Prefix: w.cfg.Prefix.Symbol(role),
			rank:   w.cfg.Prefix.Rank(role),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rank != entries[j].rank {
			return entries[i].rank > entries[j].rank
		}
		return w.Casefold(entries[i].Nick) < w.Casefold(entries[j].Nick)
	})

	return entries
}

// Names returns the member list for a channel, for the RPL_NAMREPLY /
// RPL_ENDOFNAMES sequence. Returns an error only if the channel does not
// exist or (for +s channels) the caller isn't a member.
func (w *World) Names(id SessionID, channelName string) (string, []NameEntry, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	folded := w.foldChannel(channelName)
	ch, exists := w.channels[folded]
	if !exists {
		return channelName, nil, numErr(ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}

	if ch.hasMode('s') {
		if _, onChan := ch.Members[id]; !onChan {
			return channelName, nil, numErr(ERR_NOSUCHCHANNEL, channelName, "No such channel")
		}
	}

	return ch.DisplayName, w.namesSnapshotLocked(ch), nil
}

// ListEntry is one row of a LIST reply.
type ListEntry struct {
	DisplayName string
	MemberCount int
	Topic       string
}

// List enumerates channels visible to the caller: SECRET channels are
// omitted unless the caller is a member, per spec.md §4.3.
func (w *World) List(id SessionID) []ListEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []ListEntry
	for _, ch := range w.channels {
		if ch.hasMode('s') {
			if _, onChan := ch.Members[id]; !onChan {
				continue
			}
		}
		out = append(out, ListEntry{
			DisplayName: ch.DisplayName,
			MemberCount: len(ch.Members),
			Topic:       ch.Topic,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}

// hasOpPrivilegeLocked reports whether a member holds OP rank or higher.
// Caller must hold the World's lock.
func (w *World) hasOpPrivilegeLocked(m *Member) bool {
	return w.cfg.Prefix.Rank(m.HighestRole(w.cfg.Prefix)) >= w.cfg.Prefix.Rank('o')
}

// hasVoicePrivilegeLocked reports whether a member holds VOICE or higher.
func (w *World) hasVoicePrivilegeLocked(m *Member) bool {
	return w.cfg.Prefix.Rank(m.HighestRole(w.cfg.Prefix)) >= w.cfg.Prefix.Rank('v')
}

// hasHalfopPrivilegeLocked reports whether a member holds HALFOP or
// higher.
func (w *World) hasHalfopPrivilegeLocked(m *Member) bool {
	return w.cfg.Prefix.Rank(m.HighestRole(w.cfg.Prefix)) >= w.cfg.Prefix.Rank('h')
}
