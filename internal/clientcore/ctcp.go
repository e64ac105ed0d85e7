package clientcore

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/catbox-irc/modernd/internal/dcc"
)

const ctcpDelim = "\x01"

// DCCOffer is a parsed incoming "DCC SEND" CTCP request.
type DCCOffer struct {
	Filename string
	IP       net.IP
	Port     int
	Size     int64
	Token    dcc.Token
}

// ParseDCCSendOffer recognizes a CTCP "DCC SEND <filename> <ip> <port> <size> <token-hex>"
// request embedded in a PRIVMSG's trailing parameter. The IP is encoded as
// the classic DCC big-endian uint32, and the token is our own extension
// appended as a final hex-encoded argument (plain DCC clients that don't
// understand it simply see one more ignorable token).
func ParseDCCSendOffer(text string) (DCCOffer, bool) {
	if !strings.HasPrefix(text, ctcpDelim) || !strings.HasSuffix(text, ctcpDelim) {
		return DCCOffer{}, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(text, ctcpDelim), ctcpDelim)
	fields := strings.Fields(body)
	if len(fields) != 7 || fields[0] != "DCC" || fields[1] != "SEND" {
		return DCCOffer{}, false
	}
	filename, ipField, portField, sizeField, tokField := fields[2], fields[3], fields[4], fields[5], fields[6]

	ipN, err := strconv.ParseUint(ipField, 10, 32)
	if err != nil {
		return DCCOffer{}, false
	}
	port, err := strconv.Atoi(portField)
	if err != nil || port < 0 || port > 65535 {
		return DCCOffer{}, false
	}
	size, err := strconv.ParseInt(sizeField, 10, 64)
	if err != nil || size < 0 {
		return DCCOffer{}, false
	}
	tokBytes, err := hex.DecodeString(tokField)
	if err != nil || len(tokBytes) != dcc.TokenSize {
		return DCCOffer{}, false
	}
	var tok dcc.Token
	copy(tok[:], tokBytes)

	ipBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(ipBytes, uint32(ipN))

	return DCCOffer{
		Filename: filename,
		IP:       net.IP(ipBytes),
		Port:     port,
		Size:     size,
		Token:    tok,
	}, true
}

func formatDCCSend(filename string, ip net.IP, port int, size int64, token dcc.Token) string {
	ip4 := ip.To4()
	var ipN uint32
	if ip4 != nil {
		ipN = binary.BigEndian.Uint32(ip4)
	}
	return fmt.Sprintf("%sDCC SEND %s %d %d %d %s%s",
		ctcpDelim, filename, ipN, port, size, hex.EncodeToString(token[:]), ctcpDelim)
}

func randomToken() (dcc.Token, error) {
	var t dcc.Token
	if _, err := rand.Read(t[:]); err != nil {
		return t, err
	}
	return t, nil
}
