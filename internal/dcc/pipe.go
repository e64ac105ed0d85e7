package dcc

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Role identifies which side of a transfer a HELLO frame is attaching.
type Role byte

const (
	RoleSender   Role = 1
	RoleReceiver Role = 2
)

// TokenSize is the width of a transfer token in bytes (128 bits), wide
// enough that guessing a live token by brute force isn't practical.
const TokenSize = 16

// Token identifies one rendezvous between a sender and a receiver.
type Token [TokenSize]byte

func (t Token) String() string {
	return fmt.Sprintf("%x", [TokenSize]byte(t))
}

// CurrentHelloVersion is the only HELLO version this implementation
// speaks; DecodeHello reports ErrUnknownVersion for anything else.
const CurrentHelloVersion = 1

// helloFixedLen is the size of a HELLO payload's fixed-width fields:
// version(1) + role(1) + token(16) + filename_len(2) + size(8), not
// counting the variable-length filename in between.
const helloFixedLen = 1 + 1 + TokenSize + 2 + 8

// Sentinel errors DecodeHello returns, so callers (internal/dcc's own
// Service, and any other HELLO reader) can map each distinctly onto the
// matching wire ErrorCode instead of treating every decode failure as
// the same generic protocol violation.
var (
	ErrBadHelloFraming = fmt.Errorf("dcc: malformed HELLO payload")
	ErrUnknownVersion  = fmt.Errorf("dcc: unknown HELLO version")
	ErrUnknownRole     = fmt.Errorf("dcc: unknown HELLO role")
)

// EncodeHello builds a HELLO frame payload: version(u8) | role(u8) |
// token(16) | filename_utf8_len(u16) | filename_utf8 | declared_size(u64).
func EncodeHello(role Role, token Token, filename string, size uint64) []byte {
	nameBytes := []byte(filename)
	buf := make([]byte, helloFixedLen+len(nameBytes))

	buf[0] = CurrentHelloVersion
	buf[1] = byte(role)
	copy(buf[2:2+TokenSize], token[:])

	nameLenOff := 2 + TokenSize
	binary.BigEndian.PutUint16(buf[nameLenOff:], uint16(len(nameBytes)))
	nameOff := nameLenOff + 2
	copy(buf[nameOff:], nameBytes)
	binary.BigEndian.PutUint64(buf[nameOff+len(nameBytes):], size)

	return buf
}

// DecodeHello parses a HELLO frame payload.
func DecodeHello(payload []byte) (role Role, token Token, filename string, size uint64, err error) {
	if len(payload) < helloFixedLen {
		return 0, Token{}, "", 0, ErrBadHelloFraming
	}
	if payload[0] != CurrentHelloVersion {
		return 0, Token{}, "", 0, ErrUnknownVersion
	}
	role = Role(payload[1])
	if role != RoleSender && role != RoleReceiver {
		return 0, Token{}, "", 0, ErrUnknownRole
	}
	copy(token[:], payload[2:2+TokenSize])

	nameLenOff := 2 + TokenSize
	nameLen := int(binary.BigEndian.Uint16(payload[nameLenOff:]))
	nameOff := nameLenOff + 2
	sizeOff := nameOff + nameLen
	if len(payload) != sizeOff+8 {
		return 0, Token{}, "", 0, ErrBadHelloFraming
	}

	filename = string(payload[nameOff:sizeOff])
	size = binary.BigEndian.Uint64(payload[sizeOff:])
	return role, token, filename, size, nil
}

// queueDepth bounds the number of in-flight chunks buffered between the
// sender's reader goroutine and the receiver's writer goroutine.
const queueDepth = 32

// Pipe is one rendezvous point between a SENDER and a RECEIVER sharing a
// token. Both attach slots use atomic compare-and-swap so two connections
// racing to claim the same role never both succeed.
type Pipe struct {
	Token   Token
	Size    uint64
	Created time.Time

	senderSlot   int32
	receiverSlot int32

	data chan []byte

	closeOnce sync.Once
	done      chan struct{}

	errMu   sync.Mutex
	errCode ErrorCode
	hasErr  bool
}

// NewPipe allocates a pipe for a not-yet-attached token.
func NewPipe(token Token, size uint64) *Pipe {
	return &Pipe{
		Token:   token,
		Size:    size,
		Created: time.Now(),
		data:    make(chan []byte, queueDepth),
		done:    make(chan struct{}),
	}
}

// AttachSender claims the sender slot, returning false if it's already
// taken (the error the caller should report is ErrMultipleSenders).
func (p *Pipe) AttachSender() bool {
	return atomic.CompareAndSwapInt32(&p.senderSlot, 0, 1)
}

// AttachReceiver claims the receiver slot.
func (p *Pipe) AttachReceiver() bool {
	return atomic.CompareAndSwapInt32(&p.receiverSlot, 0, 1)
}

// Ready reports whether both sides have attached.
func (p *Pipe) Ready() bool {
	return atomic.LoadInt32(&p.senderSlot) == 1 && atomic.LoadInt32(&p.receiverSlot) == 1
}

// Push enqueues one chunk from the sender side, blocking if the queue is
// full (this is the transfer's only backpressure mechanism) until either
// the chunk is accepted or the pipe is torn down.
func (p *Pipe) Push(chunk []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.data <- chunk:
		return true
	case <-p.done:
		return false
	}
}

// Pull dequeues one chunk for the receiver side, or returns ok=false once
// the pipe has been torn down and drained.
func (p *Pipe) Pull() (chunk []byte, ok bool) {
	select {
	case chunk, ok = <-p.data:
		return chunk, ok
	case <-p.done:
		select {
		case chunk, ok = <-p.data:
			return chunk, ok
		default:
			return nil, false
		}
	}
}

// Close tears the pipe down: any blocked Push/Pull unblocks, and further
// Push calls fail immediately. Safe to call more than once.
func (p *Pipe) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// CloseWithError tears the pipe down the same way Close does, but records
// code so the side that didn't cause the failure can report the matching
// ERROR frame instead of a plain EOF once it observes the teardown.
func (p *Pipe) CloseWithError(code ErrorCode) {
	p.errMu.Lock()
	p.errCode = code
	p.hasErr = true
	p.errMu.Unlock()
	p.Close()
}

// Err reports the code passed to CloseWithError, if the pipe was torn
// down that way.
func (p *Pipe) Err() (code ErrorCode, ok bool) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.errCode, p.hasErr
}

// Done reports the pipe's teardown channel for select loops.
func (p *Pipe) Done() <-chan struct{} {
	return p.done
}
