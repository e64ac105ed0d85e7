// Package ircmsg provides encoding and decoding of IRC protocol messages,
// including IRCv3 message tags. It is useful for implementing both the
// server and client halves of the protocol.
package ircmsg

import (
	"fmt"
	"strings"
)

// MaxLineLength is the maximum protocol message line length, CRLF included,
// and excluding any leading tags section (RFC 2812 / Modern IRC both
// measure the 512 byte cap this way; IRCv3 tags ride on top of it).
const MaxLineLength = 512

// ErrTruncated is returned by Encode if the message had to be cut short to
// fit MaxLineLength. The returned string is still a well-formed message.
var ErrTruncated = fmt.Errorf("message truncated")

var errEmptyParam = fmt.Errorf("parameter with zero characters")

// Message holds one protocol line: optional tags, optional source prefix, a
// command (word or 3-digit numeric), and up to 15 parameters.
type Message struct {
	// Tags is nil if the message carried no '@' section. A present tag with
	// no '=value' has an empty string value, distinguishable from an absent
	// tag only by checking for key presence.
	Tags map[string]string

	// TagOrder preserves the order tags appeared in on decode, for
	// round-tripping logs; Encode does not require it (map iteration order
	// does not affect semantic equality, only wire byte-for-byte identity).
	TagOrder []string

	// Prefix ("source") may be blank.
	Prefix string

	// Command is the verb, e.g. PRIVMSG, or a 3-digit numeric. Always
	// upper-cased on decode.
	Command string

	// Params holds up to 15 positional parameters. The last one is the
	// "trailing" parameter if it was introduced with ':' or contains a
	// space.
	Params []string
}

func (m Message) String() string {
	return fmt.Sprintf("Tags%v Prefix[%s] Command[%s] Params%q", m.Tags, m.Prefix, m.Command, m.Params)
}

// SourceNick retrieves the nickname portion of the prefix, or "" if the
// prefix is blank or is a bare server name.
func (m Message) SourceNick() string {
	idx := strings.Index(m.Prefix, "!")
	if idx == -1 {
		return ""
	}
	return m.Prefix[:idx]
}

// Tag fetches a tag value, reporting whether the tag was present at all.
func (m Message) Tag(key string) (string, bool) {
	if m.Tags == nil {
		return "", false
	}
	v, ok := m.Tags[key]
	return v, ok
}
