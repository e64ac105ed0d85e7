package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/catbox-irc/modernd/internal/ircdconfig"
)

// pickDCCListener binds the FileTransferService's listener. A configured
// dcc_listen_address wins outright; otherwise this walks the configured
// port range on the same host portion as the IRC listener until one
// binds, the same "just try the next port" approach the teacher's
// net.go takes for retrying a bind.
func pickDCCListener(cfg ircdconfig.Config) (net.Listener, error) {
	if cfg.DCCListenAddress != "" && cfg.DCCListenAddress != ":0" {
		return net.Listen("tcp", cfg.DCCListenAddress)
	}

	host := ""
	if idx := strings.LastIndex(cfg.ListenAddress, ":"); idx != -1 {
		host = cfg.ListenAddress[:idx]
	}

	for port := cfg.DCCPortMin; port <= cfg.DCCPortMax; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
	}
	return nil, fmt.Errorf("no free dcc port in range %d-%d", cfg.DCCPortMin, cfg.DCCPortMax)
}
