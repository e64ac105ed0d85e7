// Command ircd runs the chat server: the IRC control listener plus its
// paired DCC file-transfer listener. Flag parsing follows the shape of
// the teacher's args.go, trimmed and extended for this server's own
// configuration surface.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"
	"time"

	"github.com/catbox-irc/modernd/internal/dcc"
	"github.com/catbox-irc/modernd/internal/ircd"
	"github.com/catbox-irc/modernd/internal/ircdconfig"
)

// version and createdDate feed the 004/RPL_CREATED welcome numerics; set
// at release time, fixed here since this server has no build pipeline
// that stamps them.
const (
	version     = "modernd-0.1"
	createdDate = "2026-01-01"
)

type args struct {
	configFile string
	listenAddr string
	dccListen  string
	dccPortMin int
	dccPortMax int
	serverName string
	motdFile   string
}

func getArgs() (args, error) {
	configFile := flag.String("f", "", "Configuration file (YAML).")
	listenAddr := flag.String("l", "", "IRC listen address, overrides config (e.g. :6667).")
	dccListen := flag.String("L", "", "DCC listen address, overrides config.")
	dccPortMin := flag.Int("P", 0, "Lowest DCC port to hand out, overrides config.")
	dccPortMax := flag.Int("p", 0, "Highest DCC port to hand out, overrides config.")
	serverName := flag.String("N", "", "Server name, overrides config.")
	motdFile := flag.String("M", "", "MOTD file, overrides config.")

	flag.Parse()

	return args{
		configFile: *configFile,
		listenAddr: *listenAddr,
		dccListen:  *dccListen,
		dccPortMin: *dccPortMin,
		dccPortMax: *dccPortMax,
		serverName: *serverName,
		motdFile:   *motdFile,
	}, nil
}

func main() {
	log.SetFlags(0)
	logger := log.New(os.Stderr, "", log.LstdFlags)

	a, err := getArgs()
	if err != nil {
		flag.PrintDefaults()
		log.Fatal(err)
	}

	cfg, err := ircdconfig.Load(a.configFile)
	if err != nil {
		log.Fatal(err)
	}
	applyOverrides(&cfg, a)

	motd, err := loadMOTD(cfg.MOTDFile)
	if err != nil {
		log.Fatal(err)
	}

	srv, err := ircd.New(cfg, version, createdDate, motd, logger)
	if err != nil {
		log.Fatal(err)
	}

	go runDCCService(cfg, logger)

	if err := srv.Run(cfg.ListenAddress); err != nil {
		log.Fatal(err)
	}
}

func applyOverrides(cfg *ircdconfig.Config, a args) {
	if a.listenAddr != "" {
		cfg.ListenAddress = a.listenAddr
	}
	if a.dccListen != "" {
		cfg.DCCListenAddress = a.dccListen
	}
	if a.dccPortMin > 0 {
		cfg.DCCPortMin = a.dccPortMin
	}
	if a.dccPortMax > 0 {
		cfg.DCCPortMax = a.dccPortMax
	}
	if a.serverName != "" {
		cfg.ServerName = a.serverName
	}
	if a.motdFile != "" {
		cfg.MOTDFile = a.motdFile
	}
}

func loadMOTD(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading motd file: %w", err)
	}
	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	return lines, nil
}

// runDCCService hosts the rendezvous listener the FileTransferService
// uses; it shares no state with the IRC control connection beyond the
// token a CTCP DCC SEND handshake carries.
func runDCCService(cfg ircdconfig.Config, logger *log.Logger) {
	ln, err := pickDCCListener(cfg)
	if err != nil {
		log.Fatal(err)
	}

	idleTimeout := time.Duration(cfg.DCCIdleTimeoutSeconds) * time.Second
	svc := dcc.NewService(dcc.NewTable(), idleTimeout, logger)
	logger.Printf("dcc service listening on %s", ln.Addr())
	if err := svc.Serve(ln); err != nil {
		logger.Printf("dcc service stopped: %s", err)
	}
}
