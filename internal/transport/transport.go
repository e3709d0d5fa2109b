// Package transport owns the raw byte-transport contract.
//
// Ownership boundary:
// - Source/Sink single-byte tri-state primitives
// - the would-block sentinel
// - in-memory pipe endpoints for tests and loopback use
package transport

import "errors"

// ErrWouldBlock reports that an operation did not complete, no data was
// lost, and the caller should retry later. It is the third state of the
// tri-state result (ready / would-block / hard error) and is never a
// failure.
var ErrWouldBlock = errors.New("transport: would block")

// Source is a non-blocking byte producer, typically a UART receive
// register. ReadByte returns ErrWouldBlock when no byte is available yet;
// any other error is a hard transport fault and is opaque to the protocol
// layers above.
type Source interface {
	ReadByte() (byte, error)
}

// Sink is a non-blocking byte consumer. WriteByte returns ErrWouldBlock
// when the underlying device cannot accept the byte right now; the byte is
// not consumed and may be retried.
type Sink interface {
	WriteByte(byte) error
}
