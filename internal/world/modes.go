package world

import "strings"

// canonicalOrder is the order spec.md §4.3 requires mode-flag output to
// follow within a sign group.
const canonicalOrder = "iklmnst"

// userModeOrder is the display order for a session's own user modes.
// Distinct from canonicalOrder, which only covers channel-mode letters.
const userModeOrder = "iosw"

// UserMode applies or queries a user's own mode string. Only self may
// change a user's modes (spec.md §4.3); 'o' can only be cleared, never
// self-set, matching the teacher's userModeCommand.
func (w *World) UserMode(id SessionID, target string, modeStr string) (current string, changed string, err error) {
	w.mu.Lock()

	s, ok := w.sessions[id]
	if !ok {
		w.mu.Unlock()
		return "", "", numErr(ERR_NOTREGISTERED, "*", "Unknown connection")
	}

	targetID, exists := w.nicks[w.Casefold(target)]
	if !exists {
		w.mu.Unlock()
		return "", "", numErr(ERR_NOSUCHNICK, target, "No such nick/channel")
	}
	if targetID != id {
		w.mu.Unlock()
		return "", "", numErr(ERR_USERSDONTMATCH, "Cannot change mode for other users")
	}

	if modeStr == "" {
		current = renderUserModes(s)
		w.mu.Unlock()
		return current, "", nil
	}

	var applied strings.Builder
	sign := byte('+')
	for _, r := range modeStr {
		c := byte(r)
		if c == '+' || c == '-' {
			sign = c
			continue
		}
		switch c {
		case 'i', 'w', 's':
			if sign == '+' {
				if !s.hasMode(c) {
					s.Modes[c] = struct{}{}
					applied.WriteByte('+')
					applied.WriteByte(c)
				}
			} else {
				if s.hasMode(c) {
					delete(s.Modes, c)
					applied.WriteByte('-')
					applied.WriteByte(c)
				}
			}
		case 'o':
			// Ignore attempts to self-+o; only OPER may grant it.
			if sign == '-' && s.hasMode('o') {
				delete(s.Modes, 'o')
				s.Operator = false
				applied.WriteByte('-')
				applied.WriteByte('o')
			}
		}
	}

	changed = applied.String()
	uhost := s.NickUhost()
	w.mu.Unlock()

	if changed != "" {
		w.outbox.SendRaw(id, uhost, "MODE", []string{s.Nick, changed})
	}
	return "", changed, nil
}

func renderUserModes(s *Session) string {
	if len(s.Modes) == 0 {
		return "+"
	}
	var b strings.Builder
	b.WriteByte('+')
	for _, c := range userModeOrder {
		if s.hasMode(byte(c)) {
			b.WriteByte(byte(c))
		}
	}
	return b.String()
}

// ChannelModeQuery returns the current flag-mode string for RPL_CHANNELMODEIS.
func (w *World) ChannelModeQuery(id SessionID, channelName string) (display, modes string, err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	folded := w.foldChannel(channelName)
	ch, exists := w.channels[folded]
	if !exists {
		return channelName, "", numErr(ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}
	if _, onChan := ch.Members[id]; !onChan {
		return channelName, "", numErr(ERR_NOTONCHANNEL, channelName, "You're not on that channel")
	}

	return ch.DisplayName, renderChannelModes(ch), nil
}

func renderChannelModes(ch *Channel) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, c := range canonicalOrder {
		if ch.hasMode(byte(c)) {
			b.WriteByte(byte(c))
		}
	}
	return b.String()
}

// ListModeEntry is one ban/except/invex list entry, for RPL_BANLIST/
// RPL_EXCEPTLIST/RPL_INVITELIST.
type ListModeEntry struct {
	Mask string
}

// QueryListMode returns the current ban/except/invex mask list, matching
// the insertion order spec.md §4.3 requires preserved.
func (w *World) QueryListMode(id SessionID, channelName string, mode byte, exceptsChar, invexChar byte) (display string, entries []ListModeEntry, err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	folded := w.foldChannel(channelName)
	ch, exists := w.channels[folded]
	if !exists {
		return channelName, nil, numErr(ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}
	if _, onChan := ch.Members[id]; !onChan {
		return channelName, nil, numErr(ERR_NOTONCHANNEL, channelName, "You're not on that channel")
	}

	var list []string
	switch {
	case mode == 'b':
		list = ch.Bans
	case mode == exceptsChar:
		list = ch.Excepts
	case mode == invexChar:
		list = ch.Invex
	}

	out := make([]ListModeEntry, len(list))
	for i, m := range list {
		out[i] = ListModeEntry{Mask: m}
	}
	return ch.DisplayName, out, nil
}

// ModeChangeRequest is one (sign, mode, argument) triple parsed from a
// MODE command's mode string and trailing parameters.
type ModeChangeRequest struct {
	Sign byte
	Mode byte
	Arg  string
}

// ChannelMode applies a sequence of channel mode changes, enforcing the
// rank-derived permission rules in spec.md §4.3: HALFOP may only toggle
// +v, OP may toggle h/v/b/e/I/k/l/i/m/s/t/n, and ADMIN/OWNER may assign
// any lower rank. It returns the applied mode string and arguments
// (already broadcast to the channel) plus any list-mode queries embedded
// in the request (a bare 'b'/'e'/'I' with no argument).
func (w *World) ChannelMode(id SessionID, channelName string, changes []ModeChangeRequest, exceptsChar, invexChar byte) (appliedModes string, appliedArgs []string, queries []ListQuery, err error) {
	var msgs []outboundMsg

	w.mu.Lock()
	folded := w.foldChannel(channelName)
	ch, exists := w.channels[folded]
	if !exists {
		w.mu.Unlock()
		return "", nil, nil, numErr(ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}

	member, onChan := ch.Members[id]
	if !onChan {
		w.mu.Unlock()
		return "", nil, nil, numErr(ERR_NOTONCHANNEL, channelName, "You're not on that channel")
	}

	var plusModes, minusModes strings.Builder
	var plusArgs, minusArgs []string

	for _, ch2 := range changes {
		if ch2.Arg == "" && isListModeChar(ch2.Mode, exceptsChar, invexChar) {
			queries = append(queries, ListQuery{Mode: ch2.Mode})
			continue
		}

		if !w.permittedLocked(member, ch2.Mode, exceptsChar, invexChar) {
			continue
		}

		applied := w.applyChannelModeLocked(ch, ch2, exceptsChar, invexChar)
		if !applied {
			continue
		}

		if ch2.Sign == '+' {
			plusModes.WriteByte(ch2.Mode)
			if ch2.Arg != "" {
				plusArgs = append(plusArgs, ch2.Arg)
			}
		} else {
			minusModes.WriteByte(ch2.Mode)
			if ch2.Arg != "" {
				minusArgs = append(minusArgs, ch2.Arg)
			}
		}
	}

	var modeStr strings.Builder
	var args []string
	if plusModes.Len() > 0 {
		modeStr.WriteByte('+')
		modeStr.WriteString(plusModes.String())
		args = append(args, plusArgs...)
	}
	if minusModes.Len() > 0 {
		modeStr.WriteByte('-')
		modeStr.WriteString(minusModes.String())
		args = append(args, minusArgs...)
	}

	appliedModes = modeStr.String()
	appliedArgs = args

	if appliedModes != "" {
		s := w.sessions[id]
		params := append([]string{ch.DisplayName, appliedModes}, args...)
		for memberID := range ch.Members {
			msgs = append(msgs, outboundMsg{to: memberID, prefix: s.NickUhost(), command: "MODE", params: params})
		}
	}

	w.mu.Unlock()
	w.flush(msgs)
	return appliedModes, appliedArgs, queries, nil
}

// ListQuery is a bare list-mode character in a MODE request with no
// argument, meaning "show me the list" rather than "apply a change".
type ListQuery struct {
	Mode byte
}

func isListModeChar(m, exceptsChar, invexChar byte) bool {
	return m == 'b' || m == exceptsChar || m == invexChar
}

// permittedLocked enforces spec.md §4.3's rank rules: HALFOP may only
// toggle +v; OP may toggle h/v/b/e/I/k/l/i/m/s/t/n; assigning the OP role
// itself (or higher) requires ADMIN/OWNER, matching "ADMIN/OWNER may
// assign lower ranks". Caller holds the World's lock.
func (w *World) permittedLocked(m *Member, mode byte, exceptsChar, invexChar byte) bool {
	r := w.cfg.Prefix.Rank(m.HighestRole(w.cfg.Prefix))

	switch mode {
	case 'v':
		return r >= w.cfg.Prefix.Rank('h')
	case 'h':
		return r >= w.cfg.Prefix.Rank('o')
	case 'o':
		return r >= w.cfg.Prefix.Rank('a')
	case 'a', 'q':
		return r >= w.cfg.Prefix.Rank('q')
	default:
		return r >= w.cfg.Prefix.Rank('o')
	}
}

// applyChannelModeLocked mutates the channel for one parsed mode change,
// returning whether anything actually changed (so a no-op +b of an
// already-present mask doesn't get echoed, matching spec.md §3's
// "adding a duplicate mask is a no-op").
func (w *World) applyChannelModeLocked(ch *Channel, req ModeChangeRequest, exceptsChar, invexChar byte) bool {
	adding := req.Sign == '+'

	switch {
	case req.Mode == 'b':
		return applyMaskList(&ch.Bans, req.Arg, adding)
	case req.Mode == exceptsChar:
		return applyMaskList(&ch.Excepts, req.Arg, adding)
	case req.Mode == invexChar:
		return applyMaskList(&ch.Invex, req.Arg, adding)
	case req.Mode == 'k':
		if adding {
			if ch.HasKey && ch.Key == req.Arg {
				return false
			}
			ch.HasKey = true
			ch.Key = req.Arg
			return true
		}
		if !ch.HasKey {
			return false
		}
		ch.HasKey = false
		ch.Key = ""
		return true
	case req.Mode == 'l':
		if adding {
			n, err := parsePositiveInt(req.Arg)
			if err != nil {
				return false
			}
			if ch.HasLimit && ch.Limit == n {
				return false
			}
			ch.HasLimit = true
			ch.Limit = n
			return true
		}
		if !ch.HasLimit {
			return false
		}
		ch.HasLimit = false
		ch.Limit = 0
		return true
	case req.Mode == 'i', req.Mode == 'm', req.Mode == 's', req.Mode == 't', req.Mode == 'n', req.Mode == 'p':
		if adding {
			if ch.hasMode(req.Mode) {
				return false
			}
			ch.Modes[req.Mode] = struct{}{}
			return true
		}
		if !ch.hasMode(req.Mode) {
			return false
		}
		delete(ch.Modes, req.Mode)
		return true
	case req.Mode == 'o', req.Mode == 'h', req.Mode == 'v', req.Mode == 'a', req.Mode == 'q':
		targetID, exists := w.nicks[w.Casefold(req.Arg)]
		if !exists {
			return false
		}
		targetMember, onChan := ch.Members[targetID]
		if !onChan {
			return false
		}
		if adding {
			if targetMember.hasRole(req.Mode) {
				return false
			}
			targetMember.Roles[req.Mode] = struct{}{}
			return true
		}
		if !targetMember.hasRole(req.Mode) {
			return false
		}
		delete(targetMember.Roles, req.Mode)
		return true
	}
	return false
}

func applyMaskList(list *[]string, mask string, adding bool) bool {
	idx := -1
	for i, m := range *list {
		if m == mask {
			idx = i
			break
		}
	}
	if adding {
		if idx != -1 {
			return false
		}
		*list = append(*list, mask)
		return true
	}
	if idx == -1 {
		return false
	}
	*list = append((*list)[:idx], (*list)[idx+1:]...)
	return true
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errNotANumber
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errNotANumber
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

var errNotANumber = &NumericError{Code: ERR_UNKNOWNCOMMAND, Params: []string{"not a number"}}
