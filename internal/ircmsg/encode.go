package ircmsg

import (
	"fmt"
	"sort"
	"strings"
)

// Encode renders the Message to its raw wire form with a trailing CRLF.
//
// If encoding would exceed MaxLineLength (tags excluded from the count, as
// they ride outside the classic 512-byte budget), the message is truncated
// and ErrTruncated returned alongside the still-usable truncated string.
//
// It does not enforce command-specific parameter semantics.
func (m Message) Encode() (string, error) {
	var s string

	if len(m.Tags) > 0 {
		s += "@" + encodeTags(m) + " "
	}

	body := ""
	if len(m.Prefix) > 0 {
		body += ":" + m.Prefix + " "
	}
	body += m.Command

	if len(body)+2 > MaxLineLength {
		return "", fmt.Errorf("message with only prefix/command is too long")
	}

	if len(m.Params) > 15 {
		return "", fmt.Errorf("too many parameters")
	}

	truncated := false

	for i, param := range m.Params {
		if idx := strings.IndexByte(param, ' '); idx != -1 ||
			(param != "" && param[0] == ':') ||
			param == "" {
			param = ":" + param
			if i+1 != len(m.Params) {
				return "", fmt.Errorf("parameter problem: ':' or ' ' outside last parameter")
			}
		}

		if len(body)+1+len(param)+2 > MaxLineLength {
			lengthUsed := len(body) + 1 + 2
			lengthAvailable := MaxLineLength - lengthUsed

			if lengthAvailable > 0 {
				body += " " + param[0:lengthAvailable]
			}
			truncated = true
			break
		}

		body += " " + param
	}

	s += body + "\r\n"

	if truncated {
		return s, ErrTruncated
	}
	return s, nil
}

// encodeTags renders the tag section without the leading '@' or trailing
// space. Keys are sorted for deterministic output (tag key order carries
// no semantic meaning per IRCv3).
func encodeTags(m Message) string {
	keys := make([]string, 0, len(m.Tags))
	for k := range m.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := m.Tags[k]
		if v == "" {
			parts = append(parts, k)
			continue
		}
		parts = append(parts, k+"="+escapeTagValue(v))
	}
	return strings.Join(parts, ";")
}

func escapeTagValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ';':
			b.WriteString(`\:`)
		case ' ':
			b.WriteString(`\s`)
		case '\\':
			b.WriteString(`\\`)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
