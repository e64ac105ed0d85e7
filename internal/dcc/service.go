package dcc

import (
	"errors"
	"log"
	"net"
	"time"
)

// Service is the independent file-transfer listener: a separate TCP port
// from the IRC control connection, speaking only the framed binary
// protocol in frame.go. One CTCP DCC SEND handshake (formatted by
// internal/clientcore) hands both peers the same token; whichever
// connects first waits at its Pipe for the other.
type Service struct {
	table       *Table
	idleTimeout time.Duration
	logger      *log.Logger
}

// NewService builds a Service bound to a shared pipe table.
func NewService(table *Table, idleTimeout time.Duration, logger *log.Logger) *Service {
	return &Service{table: table, idleTimeout: idleTimeout, logger: logger}
}

// Serve accepts connections on ln until it errors (typically because the
// listener was closed).
func (s *Service) Serve(ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(nc)
	}
}

func (s *Service) handleConn(nc net.Conn) {
	defer nc.Close()

	if s.idleTimeout > 0 {
		nc.SetDeadline(time.Now().Add(s.idleTimeout))
	}

	f, err := ReadFrame(nc)
	if err != nil {
		s.logf("%s: reading HELLO: %s", nc.RemoteAddr(), err)
		return
	}
	if f.Opcode != OpHello {
		WriteFrame(nc, errorFrame(ErrNoHello))
		return
	}

	role, token, _, size, err := DecodeHello(f.Payload)
	if err != nil {
		s.logf("%s: %s", nc.RemoteAddr(), err)
		WriteFrame(nc, errorFrame(helloErrorCode(err)))
		return
	}

	pipe, _ := s.table.GetOrCreate(token, size)

	var attached bool
	var conflict ErrorCode
	if role == RoleSender {
		attached = pipe.AttachSender()
		conflict = ErrMultipleSenders
	} else {
		attached = pipe.AttachReceiver()
		conflict = ErrMultipleReceivers
	}
	if !attached {
		WriteFrame(nc, errorFrame(conflict))
		return
	}

	if role == RoleSender {
		s.pumpSender(nc, pipe)
	} else {
		s.pumpReceiver(nc, pipe)
	}

	s.table.Remove(token, pipe)
}

// helloErrorCode maps a DecodeHello failure onto the wire ErrorCode that
// best describes it.
func helloErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrUnknownVersion):
		return ErrUnknownVersionMsg
	case errors.Is(err, ErrUnknownRole):
		return ErrUnknownRoleMsg
	default:
		return ErrBadFraming
	}
}

// ioErrorCode classifies a read/write failure as a timeout or a plain
// broken connection, per spec's "any framing or I/O error reports the
// matching ERROR code on both sides if still open."
func ioErrorCode(err error) ErrorCode {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrBrokenPipe
}

// pumpSender reads DATA frames from the sending connection and forwards
// each chunk onto the pipe's bounded queue until EOF or error.
func (s *Service) pumpSender(nc net.Conn, pipe *Pipe) {
	for {
		if s.idleTimeout > 0 {
			nc.SetDeadline(time.Now().Add(s.idleTimeout))
		}
		f, err := ReadFrame(nc)
		if err != nil {
			code := ioErrorCode(err)
			WriteFrame(nc, errorFrame(code))
			pipe.CloseWithError(code)
			return
		}
		switch f.Opcode {
		case OpData:
			if !pipe.Push(f.Payload) {
				if code, ok := pipe.Err(); ok {
					WriteFrame(nc, errorFrame(code))
				}
				return
			}
			WriteFrame(nc, Frame{Opcode: OpAck})
		case OpEOF:
			pipe.Close()
			return
		case OpError:
			pipe.CloseWithError(DecodeErrorCode(f.Payload))
			return
		default:
			WriteFrame(nc, errorFrame(ErrUnknownOp))
			pipe.CloseWithError(ErrUnknownOp)
			return
		}
	}
}

// pumpReceiver drains the pipe's queue and forwards each chunk as a DATA
// frame to the receiving connection, then sends EOF once the sender is
// done, or the matching ERROR code if the pipe was torn down because of
// one.
func (s *Service) pumpReceiver(nc net.Conn, pipe *Pipe) {
	for {
		chunk, ok := pipe.Pull()
		if !ok {
			if code, hasErr := pipe.Err(); hasErr {
				WriteFrame(nc, errorFrame(code))
			} else {
				WriteFrame(nc, Frame{Opcode: OpEOF})
			}
			return
		}
		if s.idleTimeout > 0 {
			nc.SetDeadline(time.Now().Add(s.idleTimeout))
		}
		if err := WriteFrame(nc, Frame{Opcode: OpData, Payload: chunk}); err != nil {
			pipe.CloseWithError(ioErrorCode(err))
			return
		}
		// Wait for the receiver's ACK before pulling the next chunk, the
		// transfer's only flow-control signal back to the sender side.
		ack, err := ReadFrame(nc)
		if err != nil {
			pipe.CloseWithError(ioErrorCode(err))
			return
		}
		if ack.Opcode != OpAck {
			WriteFrame(nc, errorFrame(ErrUnknownOp))
			pipe.CloseWithError(ErrUnknownOp)
			return
		}
	}
}

func (s *Service) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
