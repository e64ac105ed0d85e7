package world

// SetAway sets or clears a session's away message. An empty message
// clears away status (RPL_UNAWAY), a non-empty one sets it (RPL_NOWAWAY);
// the caller translates the boolean into the right numeric.
func (w *World) SetAway(id SessionID, message string) (wasCleared bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.sessions[id]
	if !ok {
		return false, numErr(ERR_NOTREGISTERED, "*", "Unknown connection")
	}

	if message == "" {
		s.HasAway = false
		s.Away = ""
		return true, nil
	}
	s.HasAway = true
	s.Away = message
	return false, nil
}

// Oper promotes a session to operator status if the given credentials
// match the server's configured single shared operator credential set
// (spec.md §1 Non-goals: "operator ACL beyond a single shared
// credential" is out of scope, so this is a flat name->password map, not
// a tiered ACL).
func (w *World) Oper(id SessionID, name, password string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.sessions[id]
	if !ok {
		return numErr(ERR_NOTREGISTERED, "*", "Unknown connection")
	}

	want, exists := w.cfg.Opers[name]
	if !exists || want != password {
		return numErr(ERR_NOOPERHOST, "Password incorrect")
	}

	s.Operator = true
	s.Modes['o'] = struct{}{}
	return nil
}
