package session

import (
	"strings"

	"github.com/catbox-irc/modernd/internal/ircmsg"
	"github.com/catbox-irc/modernd/internal/world"
)

func handlePass(s *Session, m ircmsg.Message) {
	if s.State == Registered {
		s.numeric(world.ERR_ALREADYREGISTRED, "You may not reregister")
		return
	}
	if len(m.Params) < 1 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "PASS", "Not enough parameters")
		return
	}
	if err := s.world.CheckPassword(m.Params[0]); err != nil {
		if ne, ok := err.(*world.NumericError); ok {
			s.numeric(ne.Code, ne.Params...)
		}
		s.Quit("Password incorrect")
		return
	}
	s.passOK = true
	s.tryCompleteRegistration()
}

// handleCap implements just enough of IRCv3 capability negotiation
// (spec.md §4.4) to not wedge clients that probe for it: LS advertises no
// capabilities, END releases the registration hold.
func handleCap(s *Session, m ircmsg.Message) {
	if len(m.Params) == 0 {
		return
	}
	sub := strings.ToUpper(m.Params[0])
	switch sub {
	case "LS", "LIST":
		if s.State != Registered {
			s.capPending = true
			s.State = CapNegotiating
		}
		s.fromServer("CAP", s.currentNick(), "LS", "")
	case "REQ":
		s.fromServer("CAP", s.currentNick(), "NAK", strings.Join(m.Params[1:], " "))
	case "END":
		s.capPending = false
		if s.State == CapNegotiating {
			s.State = Connected
		}
		s.tryCompleteRegistration()
	}
}

func handleNick(s *Session, m ircmsg.Message) {
	if len(m.Params) < 1 {
		s.numeric(world.ERR_NONICKNAMEGIVEN, "No nickname given")
		return
	}
	nick := m.Params[0]

	if s.State == Registered {
		if err := s.world.ChangeNick(s.ID, nick); err != nil {
			if ne, ok := err.(*world.NumericError); ok {
				s.numeric(ne.Code, ne.Params...)
			}
		}
		return
	}

	if err := s.world.SetNick(s.ID, nick); err != nil {
		if ne, ok := err.(*world.NumericError); ok {
			s.numeric(ne.Code, ne.Params...)
		}
		return
	}
	s.gotNick = true
	s.tryCompleteRegistration()
}

func handleUser(s *Session, m ircmsg.Message) {
	if s.State == Registered {
		s.numeric(world.ERR_ALREADYREGISTRED, "You may not reregister")
		return
	}
	if len(m.Params) < 4 {
		s.numeric(world.ERR_NEEDMOREPARAMS, "USER", "Not enough parameters")
		return
	}
	s.pendingUser = m.Params[0]
	s.pendingReal = m.Params[3]
	s.gotUser = true
	s.tryCompleteRegistration()
}

// tryCompleteRegistration finishes registration once NICK, USER, and any
// required PASS have all arrived and CAP negotiation (if any) has ended,
// matching spec.md §4.4's "accumulator, order-independent" rule.
func (s *Session) tryCompleteRegistration() {
	if s.State == Registered || s.State == Quitting {
		return
	}
	if !s.gotNick || !s.gotUser || !s.passOK || s.capPending {
		return
	}

	if err := s.world.CompleteRegistration(s.ID, world.RegistrationInfo{User: s.pendingUser, Real: s.pendingReal}); err != nil {
		return
	}
	s.State = Registered
	s.sendWelcomeBurst()
}

func (s *Session) sendWelcomeBurst() {
	nick := s.currentNick()
	s.numeric(world.RPL_WELCOME, "Welcome to the Internet Relay Network "+nick)
	s.numeric(world.RPL_YOURHOST, "Your host is "+s.cfg.ServerName+", running version "+s.cfg.Version)
	s.numeric(world.RPL_CREATED, "This server was created "+s.cfg.CreatedDate)
	s.numeric(world.RPL_MYINFO, s.cfg.ServerName, s.cfg.Version, s.cfg.UserModes, s.cfg.ChanModeStr)

	if s.cfg.ISupport != nil {
		for _, params := range s.cfg.ISupport.Lines() {
			s.numeric(world.RPL_ISUPPORT, params...)
		}
	}

	sendMOTD(s)
}

func sendMOTD(s *Session) {
	if len(s.cfg.MOTD) == 0 {
		s.numeric(world.ERR_NOMOTD, "MOTD File is missing")
		return
	}
	s.numeric(world.RPL_MOTDSTART, "- "+s.cfg.ServerName+" Message of the day - ")
	for _, line := range s.cfg.MOTD {
		s.numeric(world.RPL_MOTD, "- "+line)
	}
	s.numeric(world.RPL_ENDOFMOTD, "End of MOTD command")
}

func handleMotd(s *Session, m ircmsg.Message) {
	sendMOTD(s)
}

func handleQuit(s *Session, m ircmsg.Message) {
	reason := "Client Quit"
	if len(m.Params) > 0 {
		reason = m.Params[0]
	}
	s.Quit(reason)
}

func handlePing(s *Session, m ircmsg.Message) {
	token := ""
	if len(m.Params) > 0 {
		token = m.Params[0]
	}
	s.fromServer("PONG", s.cfg.ServerName, token)
}

func handlePong(s *Session, m ircmsg.Message) {
	if len(m.Params) == 0 {
		return
	}
	s.pong(m.Params[len(m.Params)-1])
}
