package world

// whowasHistory is a bounded FIFO of prior identities per casefolded
// nickname, as described in spec.md §3 "Nickname history".
type whowasHistory struct {
	limit   int
	order   []string // casefolded nicks in insertion order, for eviction
	entries map[string][]NickHistoryEntry
	total   int
}

func newWhowasHistory(limit int) *whowasHistory {
	return &whowasHistory{
		limit:   limit,
		entries: map[string][]NickHistoryEntry{},
	}
}

func (h *whowasHistory) push(nickFolded string, entry NickHistoryEntry) {
	if _, exists := h.entries[nickFolded]; !exists {
		h.order = append(h.order, nickFolded)
	}
	// Prepend so Lookup returns most-recent-first.
	h.entries[nickFolded] = append([]NickHistoryEntry{entry}, h.entries[nickFolded]...)
	h.total++

	for h.total > h.limit && len(h.order) > 0 {
		oldest := h.order[0]
		if list := h.entries[oldest]; len(list) > 0 {
			h.entries[oldest] = list[:len(list)-1]
			h.total--
		}
		if len(h.entries[oldest]) == 0 {
			delete(h.entries, oldest)
			h.order = h.order[1:]
		}
	}
}

func (h *whowasHistory) lookup(nickFolded string) []NickHistoryEntry {
	return h.entries[nickFolded]
}
