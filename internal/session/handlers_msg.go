package session

import (
	"strings"
	"time"

	"github.com/catbox-irc/modernd/internal/ircmsg"
	"github.com/catbox-irc/modernd/internal/world"
)

func handlePrivmsg(s *Session, m ircmsg.Message) {
	dispatchMessage(s, m, false)
}

func handleNotice(s *Session, m ircmsg.Message) {
	dispatchMessage(s, m, true)
}

func dispatchMessage(s *Session, m ircmsg.Message, isNotice bool) {
	if len(m.Params) < 1 || m.Params[0] == "" {
		if !isNotice {
			s.numeric(world.ERR_NORECIPIENT, "No recipient given")
		}
		return
	}
	if len(m.Params) < 2 || m.Params[1] == "" {
		if !isNotice {
			s.numeric(world.ERR_NOTEXTTOSEND, "No text to send")
		}
		return
	}

	for _, target := range strings.Split(m.Params[0], ",") {
		away, err := s.world.Privmsg(s.ID, target, m.Params[1], isNotice)
		if err != nil {
			if !isNotice {
				if ne, ok := err.(*world.NumericError); ok {
					s.numeric(ne.Code, ne.Params...)
				}
			}
			continue
		}
		if away != "" && !isNotice {
			s.numeric(world.RPL_AWAY, target, away)
		}
	}
}

func handleAway(s *Session, m ircmsg.Message) {
	msg := ""
	if len(m.Params) > 0 {
		msg = m.Params[0]
	}
	cleared, err := s.world.SetAway(s.ID, msg)
	if err != nil {
		if ne, ok := err.(*world.NumericError); ok {
			s.numeric(ne.Code, ne.Params...)
		}
		return
	}
	if cleared {
		s.numeric(world.RPL_UNAWAY, "You are no longer marked as being away")
	} else {
		s.numeric(world.RPL_NOWAWAY, "You have been marked as being away")
	}
}

func handleWho(s *Session, m ircmsg.Message) {
	if len(m.Params) < 1 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "WHO", "Not enough parameters")
		return
	}
	display, entries, err := s.world.Who(s.ID, m.Params[0])
	if err != nil {
		if ne, ok := err.(*world.NumericError); ok {
			s.numeric(ne.Code, ne.Params...)
		}
		return
	}
	for _, e := range entries {
		flags := "H"
		if e.Away {
			flags = "G"
		}
		if e.Operator {
			flags += "*"
		}
		if e.Prefix != 0 {
			flags += string(e.Prefix)
		}
		s.numeric(world.RPL_WHOREPLY, e.Channel, e.User, e.Host, e.Server, e.Nick, flags, "0 "+e.RealName)
	}
	s.numeric(world.RPL_ENDOFWHO, display, "End of WHO list")
}

func handleWhois(s *Session, m ircmsg.Message) {
	if len(m.Params) < 1 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "WHOIS", "Not enough parameters")
		return
	}
	nick := m.Params[len(m.Params)-1]

	info, err := s.world.Whois(nick, s.cfg.ServerInfo)
	if err != nil {
		if ne, ok := err.(*world.NumericError); ok {
			s.numeric(ne.Code, ne.Params...)
		}
		return
	}

	s.numeric(world.RPL_WHOISUSER, info.Nick, info.User, info.Host, "*", info.RealName)
	s.numeric(world.RPL_WHOISSERVER, info.Nick, info.Server, info.ServerInfo)
	if info.Operator {
		s.numeric(world.RPL_WHOISOPERATOR, info.Nick, "is an IRC operator")
	}
	if info.HasAway {
		s.numeric(world.RPL_AWAY, info.Nick, info.Away)
	}
	if len(info.Channels) > 0 {
		s.numeric(world.RPL_WHOISCHANNELS, info.Nick, strings.Join(info.Channels, " "))
	}
	s.numeric(world.RPL_WHOISIDLE, info.Nick, itoa(int(info.IdleSeconds)), "seconds idle")
	s.numeric(world.RPL_ENDOFWHOIS, info.Nick, "End of WHOIS list")
}

func handleWhowas(s *Session, m ircmsg.Message) {
	if len(m.Params) < 1 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "WHOWAS", "Not enough parameters")
		return
	}
	nick := m.Params[0]
	entries := s.world.Whowas(nick)
	if len(entries) == 0 {
		s.numeric(world.ERR_NOSUCHNICK, nick, "There was no such nickname")
	}
	for _, e := range entries {
		s.numeric(world.RPL_WHOWASUSER, nick, e.Uhost, e.Timestamp.Format(time.ANSIC))
	}
	s.numeric(world.RPL_ENDOFWHOWAS, nick, "End of WHOWAS")
}

func handleOper(s *Session, m ircmsg.Message) {
	if len(m.Params) < 2 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "OPER", "Not enough parameters")
		return
	}
	if err := s.world.Oper(s.ID, m.Params[0], m.Params[1]); err != nil {
		if ne, ok := err.(*world.NumericError); ok {
			s.numeric(ne.Code, ne.Params...)
		}
		return
	}
	s.numeric(world.RPL_YOUREOPER, "You are now an IRC operator")
}
