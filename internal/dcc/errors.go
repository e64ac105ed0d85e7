package dcc

import "encoding/binary"

// ErrorCode is the two-byte payload of an OpError frame.
type ErrorCode uint16

const (
	ErrNoHello           ErrorCode = 1
	ErrUnknownVersionMsg ErrorCode = 2
	ErrUnknownRoleMsg    ErrorCode = 3
	ErrUnknownOp         ErrorCode = 4
	ErrBadFraming        ErrorCode = 5
	ErrTimeout           ErrorCode = 6
	ErrBrokenPipe        ErrorCode = 7
	ErrMultipleSenders   ErrorCode = 8
	ErrMultipleReceivers ErrorCode = 9
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNoHello:
		return "no HELLO received"
	case ErrUnknownVersionMsg:
		return "unknown HELLO version"
	case ErrUnknownRoleMsg:
		return "unknown HELLO role"
	case ErrUnknownOp:
		return "unknown opcode"
	case ErrBadFraming:
		return "malformed frame"
	case ErrTimeout:
		return "idle timeout"
	case ErrBrokenPipe:
		return "peer connection broken"
	case ErrMultipleSenders:
		return "a sender is already attached"
	case ErrMultipleReceivers:
		return "a receiver is already attached"
	default:
		return "unknown error"
	}
}

// errorFrame builds an OpError frame carrying a big-endian u16 error code.
func errorFrame(c ErrorCode) Frame {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(c))
	return Frame{Opcode: OpError, Payload: buf}
}

// DecodeErrorCode reads the u16 error code out of an OpError frame's
// payload, defaulting to ErrBadFraming if the payload is short.
func DecodeErrorCode(payload []byte) ErrorCode {
	if len(payload) < 2 {
		return ErrBadFraming
	}
	return ErrorCode(binary.BigEndian.Uint16(payload))
}
