package session

import (
	"strings"

	"github.com/catbox-irc/modernd/internal/ircmsg"
	"github.com/catbox-irc/modernd/internal/isupport"
	"github.com/catbox-irc/modernd/internal/world"
)

func isChannelName(s string) bool {
	return s != "" && strings.ContainsRune("#&+!", rune(s[0]))
}

func handleJoin(s *Session, m ircmsg.Message) {
	if len(m.Params) < 1 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "JOIN", "Not enough parameters")
		return
	}
	channels := strings.Split(m.Params[0], ",")
	var keys []string
	if len(m.Params) > 1 {
		keys = strings.Split(m.Params[1], ",")
	}

	for i, chanName := range channels {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		res, err := s.world.Join(s.ID, chanName, key)
		if err != nil {
			if ne, ok := err.(*world.NumericError); ok {
				s.numeric(ne.Code, ne.Params...)
			}
			continue
		}
		s.sendTopicAndNames(res.DisplayName, res.HasTopic, res.Topic, res.TopicSetBy, res.Names)
	}
}

func (s *Session) sendTopicAndNames(displayName string, hasTopic bool, topic, topicSetBy string, names []world.NameEntry) {
	if hasTopic {
		s.numeric(world.RPL_TOPIC, displayName, topic)
	} else {
		s.numeric(world.RPL_NOTOPIC, displayName, "No topic is set")
	}
	s.sendNames(displayName, names)
}

func (s *Session) sendNames(displayName string, names []world.NameEntry) {
	var nicks []string
	for _, n := range names {
		if n.Prefix != 0 {
			nicks = append(nicks, string(n.Prefix)+n.Nick)
		} else {
			nicks = append(nicks, n.Nick)
		}
	}
	s.numeric(world.RPL_NAMREPLY, "=", displayName, strings.Join(nicks, " "))
	s.numeric(world.RPL_ENDOFNAMES, displayName, "End of NAMES list")
}

func handlePart(s *Session, m ircmsg.Message) {
	if len(m.Params) < 1 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "PART", "Not enough parameters")
		return
	}
	reason := ""
	if len(m.Params) > 1 {
		reason = m.Params[1]
	}
	for _, chanName := range strings.Split(m.Params[0], ",") {
		if err := s.world.Part(s.ID, chanName, reason); err != nil {
			if ne, ok := err.(*world.NumericError); ok {
				s.numeric(ne.Code, ne.Params...)
			}
		}
	}
}

func handleKick(s *Session, m ircmsg.Message) {
	if len(m.Params) < 2 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "KICK", "Not enough parameters")
		return
	}
	reason := ""
	if len(m.Params) > 2 {
		reason = m.Params[2]
	}
	for _, target := range strings.Split(m.Params[1], ",") {
		if err := s.world.Kick(s.ID, m.Params[0], target, reason); err != nil {
			if ne, ok := err.(*world.NumericError); ok {
				s.numeric(ne.Code, ne.Params...)
			}
		}
	}
}

func handleTopic(s *Session, m ircmsg.Message) {
	if len(m.Params) < 1 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "TOPIC", "Not enough parameters")
		return
	}
	if len(m.Params) == 1 {
		display, has, topic, _, _, err := s.world.Topic(s.ID, m.Params[0])
		if err != nil {
			if ne, ok := err.(*world.NumericError); ok {
				s.numeric(ne.Code, ne.Params...)
			}
			return
		}
		if has {
			s.numeric(world.RPL_TOPIC, display, topic)
		} else {
			s.numeric(world.RPL_NOTOPIC, display, "No topic is set")
		}
		return
	}

	if err := s.world.SetTopic(s.ID, m.Params[0], m.Params[1], s.topicMaxLen()); err != nil {
		if ne, ok := err.(*world.NumericError); ok {
			s.numeric(ne.Code, ne.Params...)
		}
	}
}

func (s *Session) topicMaxLen() int {
	if s.cfg.ISupport == nil {
		return 390
	}
	return s.cfg.ISupport.IntValue("TOPICLEN", 390)
}

func handleNames(s *Session, m ircmsg.Message) {
	if len(m.Params) < 1 {
		return
	}
	for _, chanName := range strings.Split(m.Params[0], ",") {
		display, names, err := s.world.Names(s.ID, chanName)
		if err != nil {
			if ne, ok := err.(*world.NumericError); ok {
				s.numeric(ne.Code, ne.Params...)
			}
			continue
		}
		s.sendNames(display, names)
	}
}

func handleList(s *Session, m ircmsg.Message) {
	for _, entry := range s.world.List(s.ID) {
		s.numeric(world.RPL_LIST, entry.DisplayName, itoa(entry.MemberCount), entry.Topic)
	}
	s.numeric(world.RPL_LISTEND, "End of LIST")
}

func handleInvite(s *Session, m ircmsg.Message) {
	if len(m.Params) < 2 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "INVITE", "Not enough parameters")
		return
	}
	display, err := s.world.Invite(s.ID, m.Params[0], m.Params[1])
	if err != nil {
		if ne, ok := err.(*world.NumericError); ok {
			s.numeric(ne.Code, ne.Params...)
		}
		return
	}
	s.numeric(world.RPL_INVITING, display, m.Params[0])
}

func handleMode(s *Session, m ircmsg.Message) {
	if len(m.Params) < 1 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "MODE", "Not enough parameters")
		return
	}
	target := m.Params[0]

	if !isChannelName(target) {
		if len(m.Params) == 1 {
			current, _, err := s.world.UserMode(s.ID, target, "")
			if err != nil {
				if ne, ok := err.(*world.NumericError); ok {
					s.numeric(ne.Code, ne.Params...)
				}
				return
			}
			s.numeric(world.RPL_UMODEIS, current)
			return
		}
		if _, _, err := s.world.UserMode(s.ID, target, m.Params[1]); err != nil {
			if ne, ok := err.(*world.NumericError); ok {
				s.numeric(ne.Code, ne.Params...)
			}
		}
		return
	}

	if len(m.Params) == 1 {
		display, modes, err := s.world.ChannelModeQuery(s.ID, target)
		if err != nil {
			if ne, ok := err.(*world.NumericError); ok {
				s.numeric(ne.Code, ne.Params...)
			}
			return
		}
		s.numeric(world.RPL_CHANNELMODEIS, display, modes)
		return
	}

	changes := parseModeChanges(m.Params[1], m.Params[2:], s.cfg.ChanModes)
	_, _, queries, err := s.world.ChannelMode(s.ID, target, changes, s.cfg.ExceptsChar, s.cfg.InvexChar)
	if err != nil {
		if ne, ok := err.(*world.NumericError); ok {
			s.numeric(ne.Code, ne.Params...)
		}
		return
	}

	for _, q := range queries {
		s.sendListModeQuery(target, q.Mode)
	}
}

func (s *Session) sendListModeQuery(channelName string, mode byte) {
	display, entries, err := s.world.QueryListMode(s.ID, channelName, mode, s.cfg.ExceptsChar, s.cfg.InvexChar)
	if err != nil {
		if ne, ok := err.(*world.NumericError); ok {
			s.numeric(ne.Code, ne.Params...)
		}
		return
	}

	listCode, endCode := world.RPL_BANLIST, world.RPL_ENDOFBANLIST
	switch mode {
	case s.cfg.ExceptsChar:
		listCode, endCode = world.RPL_EXCEPTLIST, world.RPL_ENDOFEXCEPTLIST
	case s.cfg.InvexChar:
		listCode, endCode = world.RPL_INVITELIST, world.RPL_ENDOFINVITELIST
	}

	for _, e := range entries {
		s.numeric(listCode, display, e.Mask)
	}
	s.numeric(endCode, display, "End of list")
}

// parseModeChanges expands a MODE string ("+o-v", etc.) and its trailing
// arguments into individual change requests, consuming one argument per
// mode letter that needs one, per CHANMODES' per-category rule.
func parseModeChanges(modeStr string, args []string, chanModes isupport.ChanModes) []world.ModeChangeRequest {
	var out []world.ModeChangeRequest
	sign := byte('+')
	argIdx := 0

	for i := 0; i < len(modeStr); i++ {
		c := modeStr[i]
		if c == '+' || c == '-' {
			sign = c
			continue
		}

		adding := sign == '+'
		arg := ""
		if chanModes.TakesArgument(c, adding) && argIdx < len(args) {
			arg = args[argIdx]
			argIdx++
		}
		out = append(out, world.ModeChangeRequest{Sign: sign, Mode: c, Arg: arg})
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
