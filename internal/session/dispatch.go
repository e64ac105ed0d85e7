package session

import "github.com/catbox-irc/modernd/internal/ircmsg"

type handlerFunc func(*Session, ircmsg.Message)

// alwaysAllowed verbs work regardless of registration state, matching
// spec.md §4.4: PASS/CAP/NICK/USER drive registration itself, QUIT/PING/
// PONG must never require it.
var alwaysAllowed = map[string]handlerFunc{
	"PASS": handlePass,
	"CAP":  handleCap,
	"NICK": handleNick,
	"USER": handleUser,
	"QUIT": handleQuit,
	"PING": handlePing,
	"PONG": handlePong,
}

// registeredVerbs requires the session to already be REGISTERED.
var registeredVerbs = map[string]handlerFunc{
	"JOIN":    handleJoin,
	"PART":    handlePart,
	"KICK":    handleKick,
	"TOPIC":   handleTopic,
	"NAMES":   handleNames,
	"LIST":    handleList,
	"INVITE":  handleInvite,
	"MODE":    handleMode,
	"PRIVMSG": handlePrivmsg,
	"NOTICE":  handleNotice,
	"AWAY":    handleAway,
	"WHO":     handleWho,
	"WHOIS":   handleWhois,
	"WHOWAS":  handleWhowas,
	"OPER":    handleOper,
	"MOTD":    handleMotd,
}
