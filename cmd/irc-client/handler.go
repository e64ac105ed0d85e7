package main

import (
	"fmt"
	"os"

	"github.com/catbox-irc/modernd/internal/clientcore"
	"github.com/catbox-irc/modernd/internal/ircmsg"
)

// printingHandler renders incoming lines to stdout and auto-accepts DCC
// SEND offers into the current directory, under the offered filename.
type printingHandler struct {
	client *clientcore.Client
}

func (h *printingHandler) HandleMessage(m ircmsg.Message) {
	switch m.Command {
	case "PRIVMSG", "NOTICE":
		if len(m.Params) == 2 {
			fmt.Printf("<%s:%s> %s\n", m.SourceNick(), m.Params[0], m.Params[1])
			return
		}
	}
	fmt.Println(m.String())
}

func (h *printingHandler) HandleDCCOffer(from string, offer clientcore.DCCOffer) {
	fmt.Printf("*** %s offers file %q (%d bytes), saving to ./%s\n", from, offer.Filename, offer.Size, offer.Filename)

	go func() {
		out, err := os.Create(offer.Filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dcc receive from %s failed: %s\n", from, err)
			return
		}
		defer out.Close()

		if err := h.client.AcceptDCC(offer, out); err != nil {
			fmt.Fprintf(os.Stderr, "dcc receive from %s failed: %s\n", from, err)
			return
		}
		fmt.Printf("*** received %q from %s\n", offer.Filename, from)
	}()
}
