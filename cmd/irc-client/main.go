// Command irc-client is a minimal line-oriented terminal client over
// internal/clientcore. Reading raw user input and turning a leading "/"
// into a command is the only UI concern here; everything else -- framing,
// CTCP DCC parsing, the FileTransferService wire protocol -- lives in
// clientcore.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"github.com/catbox-irc/modernd/internal/clientcore"
)

type args struct {
	server     string
	nick       string
	user       string
	realName   string
	dccPortMin int
	dccPortMax int
}

func getArgs() args {
	server := flag.String("s", "127.0.0.1:6667", "Server address (host:port).")
	nick := flag.String("n", "guest", "Nickname to use.")
	user := flag.String("u", "guest", "Username to use.")
	realName := flag.String("r", "", "Real name, defaults to the nickname.")
	dccPortMin := flag.Int("P", 49152, "Lowest port to use for outgoing DCC sends.")
	dccPortMax := flag.Int("p", 65535, "Highest port to use for outgoing DCC sends.")
	flag.Parse()

	if *realName == "" {
		*realName = *nick
	}

	return args{
		server:     *server,
		nick:       *nick,
		user:       *user,
		realName:   *realName,
		dccPortMin: *dccPortMin,
		dccPortMax: *dccPortMax,
	}
}

func main() {
	log.SetFlags(0)
	a := getArgs()

	handler := &printingHandler{client: nil}

	c, err := clientcore.Dial(a.server, handler, a.dccPortMin, a.dccPortMax, log.New(os.Stderr, "", 0))
	if err != nil {
		log.Fatalf("connecting to %s: %s", a.server, err)
	}
	handler.client = c

	if err := c.Nick(a.nick); err != nil {
		log.Fatal(err)
	}
	if err := sendUser(c, a.user, a.realName); err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := c.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "connection closed: %s\n", err)
		}
		os.Exit(0)
	}()

	readCommands(c, bufio.NewScanner(os.Stdin))
}

// sendUser issues USER directly since it isn't part of Commands (it's
// only ever sent once, at registration).
func sendUser(c *clientcore.Client, user, realName string) error {
	return c.RawUser(user, realName)
}

func readCommands(c *clientcore.Client, scanner *bufio.Scanner) {
	currentTarget := ""
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "/") {
			if currentTarget == "" {
				fmt.Println("no current target, use /join or /msg first")
				continue
			}
			if err := c.Msg(currentTarget, line); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			continue
		}

		fields := strings.Fields(line[1:])
		if len(fields) == 0 {
			continue
		}
		cmd := strings.ToLower(fields[0])
		rest := fields[1:]

		var err error
		switch cmd {
		case "join":
			if len(rest) == 0 {
				err = fmt.Errorf("usage: /join <channel> [key]")
				break
			}
			key := ""
			if len(rest) > 1 {
				key = rest[1]
			}
			currentTarget = rest[0]
			err = c.Join(rest[0], key)
		case "part":
			target := currentTarget
			if len(rest) > 0 {
				target = rest[0]
			}
			err = c.Part(target, "")
		case "msg":
			if len(rest) < 2 {
				err = fmt.Errorf("usage: /msg <target> <text>")
				break
			}
			currentTarget = rest[0]
			err = c.Msg(rest[0], strings.Join(rest[1:], " "))
		case "notice":
			if len(rest) < 2 {
				err = fmt.Errorf("usage: /notice <target> <text>")
				break
			}
			err = c.Notice(rest[0], strings.Join(rest[1:], " "))
		case "nick":
			if len(rest) != 1 {
				err = fmt.Errorf("usage: /nick <nick>")
				break
			}
			err = c.Nick(rest[0])
		case "topic":
			if len(rest) == 0 {
				err = fmt.Errorf("usage: /topic <channel> [text]")
				break
			}
			err = c.Topic(rest[0], strings.Join(rest[1:], " "))
		case "mode":
			if len(rest) < 2 {
				err = fmt.Errorf("usage: /mode <target> <modes> [args...]")
				break
			}
			err = c.Mode(rest[0], rest[1], rest[2:]...)
		case "names":
			target := currentTarget
			if len(rest) > 0 {
				target = rest[0]
			}
			err = c.Names(target)
		case "list":
			err = c.List()
		case "whois":
			if len(rest) != 1 {
				err = fmt.Errorf("usage: /whois <nick>")
				break
			}
			err = c.Whois(rest[0])
		case "dcc":
			err = handleDCC(c, rest)
		case "quit":
			reason := strings.Join(rest, " ")
			_ = c.Quit(reason)
			os.Exit(0)
		default:
			err = fmt.Errorf("unknown command /%s", cmd)
		}

		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func handleDCC(c *clientcore.Client, rest []string) error {
	if len(rest) != 3 || rest[0] != "send" {
		return fmt.Errorf("usage: /dcc send <nick> <path>")
	}
	nick, path := rest[1], rest[2]

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	localIP, err := detectLocalIP()
	if err != nil {
		f.Close()
		return err
	}

	transfer, err := c.DCCSend(nick, info.Name(), localIP, f, info.Size())
	if err != nil {
		f.Close()
		return err
	}
	go func() {
		defer f.Close()
		if err := <-transfer.Done; err != nil {
			fmt.Fprintf(os.Stderr, "dcc send to %s failed: %s\n", nick, err)
		} else {
			fmt.Printf("dcc send to %s complete\n", nick)
		}
	}()
	return nil
}

func detectLocalIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, fmt.Errorf("detecting local address: %w", err)
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}
