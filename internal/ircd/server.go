package ircd

import (
	"bufio"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/catbox-irc/modernd/internal/casefold"
	"github.com/catbox-irc/modernd/internal/ircdconfig"
	"github.com/catbox-irc/modernd/internal/ircmsg"
	"github.com/catbox-irc/modernd/internal/isupport"
	"github.com/catbox-irc/modernd/internal/session"
	"github.com/catbox-irc/modernd/internal/world"
)

// Server owns the listener, the Hub, and the WorldModel, and drives the
// heartbeat tick. Mirrors the teacher's ircd.go Server type, which held
// the listener plus the client map the teacher's single event-loop
// goroutine owned directly; here the WorldModel and Hub take that role so
// the server can run with one reader/writer goroutine pair per
// connection instead of one central loop.
type Server struct {
	cfg    ircdconfig.Config
	world  *world.World
	hub    *Hub
	logger *log.Logger

	sessionCfg session.Config
	nextID     uint64
}

// New builds a Server ready to Run. version/createdDate/motd feed the
// registration welcome burst; they're passed in rather than read from
// disk here so tests can construct a Server without a filesystem.
func New(cfg ircdconfig.Config, version, createdDate string, motd []string, logger *log.Logger) (*Server, error) {
	mapping := casefold.Mapping(cfg.Casemapping)

	prefix, err := isupport.ParsePrefix("(qaohv)~&@%+")
	if err != nil {
		return nil, err
	}
	chanModes, err := isupport.ParseChanModes("beI,k,l,imnpst")
	if err != nil {
		return nil, err
	}

	tokens := isupport.DefaultTokens()
	iset := isupport.New(tokens)

	hub := NewHub(logger)
	w := world.New(world.Config{
		ServerName:  cfg.ServerName,
		Casemapping: mapping,
		NickLen:     cfg.NickLen,
		ChannelLen:  cfg.ChannelLen,
		TopicLen:    cfg.TopicLen,
		Prefix:      prefix,
		ChanModes:   chanModes,
		ExceptsChar: 'e',
		InvexChar:   'I',
		Password:    cfg.Password,
		Opers:       cfg.Opers,
	}, hub)

	sessionCfg := session.Config{
		ServerName:  cfg.ServerName,
		Version:     version,
		CreatedDate: createdDate,
		ServerInfo:  cfg.ServerInfo,
		MOTD:        motd,
		ISupport:    iset,
		ChanModes:   chanModes,
		UserModes:   "iwo",
		ChanModeStr: "ntispkl",
		PingFreq:    time.Duration(cfg.PingFrequencySeconds) * time.Second,
		IdleTimeout: time.Duration(cfg.IdleTimeoutSeconds) * time.Second,
		ExceptsChar: 'e',
		InvexChar:   'I',
	}

	return &Server{
		cfg:        cfg,
		world:      w,
		hub:        hub,
		logger:     logger,
		sessionCfg: sessionCfg,
	}, nil
}

// World exposes the server's WorldModel for read-only inspection.
// internal/dcc does not use it: the DCC service shares no state with the
// WorldModel.
func (s *Server) World() *world.World { return s.world }

// Run listens and serves until accepting on the listener fails (the
// teacher's ircd.go also runs until the listener errors out). There is no
// other cancellation and no signal handling, here or in cmd/ircd.
func (s *Server) Run(listenAddress string) error {
	ln, err := net.Listen("tcp", listenAddress)
	if err != nil {
		return err
	}
	defer ln.Close()

	go s.heartbeatLoop()

	s.logger.Printf("listening on %s", listenAddress)
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(nc)
	}
}

func (s *Server) handleConn(nc net.Conn) {
	id := world.SessionID(atomic.AddUint64(&s.nextID, 1))

	c := &conn{
		id:  id,
		nc:  nc,
		out: make(chan ircmsg.Message, sendQueueSize),
	}
	passRequired := s.cfg.Password != ""
	c.sess = session.New(id, nc.RemoteAddr().String(), s.world, c, s.sessionCfg, passRequired)

	s.hub.add(c)
	defer s.hub.remove(id)

	done := make(chan struct{})
	go func() {
		writeLoop(nc, c)
		close(done)
	}()

	readLoop(nc, c.sess)
	<-done
}

func (s *Server) heartbeatLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		s.tickAll()
	}
}

func (s *Server) tickAll() {
	s.hub.mu.RLock()
	conns := make([]*conn, 0, len(s.hub.conns))
	for _, c := range s.hub.conns {
		conns = append(conns, c)
	}
	s.hub.mu.RUnlock()

	now := time.Now()
	for _, c := range conns {
		c.sess.Tick(now)
	}
}

func readLoop(nc net.Conn, sess *session.Session) {
	scanner := bufio.NewScanner(nc)
	scanner.Buffer(make([]byte, 4096), 8192)
	for scanner.Scan() {
		// bufio.ScanLines strips the line's terminator; ircmsg.Parse
		// requires one, so put a CRLF back before handing the line off.
		sess.HandleLine(scanner.Text() + "\r\n")
	}
	sess.Quit("Connection reset by peer")
}

func writeLoop(nc net.Conn, c *conn) {
	for m := range c.out {
		line, _ := m.Encode()
		if _, err := nc.Write([]byte(line)); err != nil {
			break
		}
	}
	nc.Close()
}
