package frame

import (
	"fmt"

	"github.com/danmuck/linkctl/internal/protocol"
)

// ErrMissingStartDelim reports that the buffer does not begin with the
// start delimiter. It carries no position: decoding always starts at
// offset zero.
var ErrMissingStartDelim error = &missingStartDelimError{}

type missingStartDelimError struct{}

func (*missingStartDelimError) Error() string         { return "frame: missing start delimiter" }
func (*missingStartDelimError) Class() protocol.Class { return protocol.ClassStructural }

// EncodeBufferTooSmallError reports a destination too small for the frame
// being encoded. Expected is the capacity a retry needs.
type EncodeBufferTooSmallError struct {
	Expected int
	Found    int
}

func (e *EncodeBufferTooSmallError) Error() string {
	return fmt.Sprintf("frame: encode buffer too small: expected %d, found %d", e.Expected, e.Found)
}

func (e *EncodeBufferTooSmallError) Class() protocol.Class { return protocol.ClassStructural }

// DecodeBufferTooSmallError reports that the buffer cannot hold the frame
// it declares. On the buffered receive path this means "need more bytes",
// never corruption.
type DecodeBufferTooSmallError struct {
	ExpectedAtLeast int
	Found           int
}

func (e *DecodeBufferTooSmallError) Error() string {
	return fmt.Sprintf("frame: decode buffer too small: expected at least %d, found %d", e.ExpectedAtLeast, e.Found)
}

func (e *DecodeBufferTooSmallError) Class() protocol.Class { return protocol.ClassStructural }

// EarlyEndDelimError reports an end delimiter at an earlier offset than
// the declared length places it: the length field overstates the frame.
type EarlyEndDelimError struct {
	FoundAt  int
	Expected int
}

func (e *EarlyEndDelimError) Error() string {
	return fmt.Sprintf("frame: end delimiter at offset %d, expected at %d", e.FoundAt, e.Expected)
}

func (e *EarlyEndDelimError) Class() protocol.Class { return protocol.ClassIntegrity }

// CrcMismatchError reports a checksum failure. Raw retains the offending
// frame bytes for diagnostics.
type CrcMismatchError struct {
	Calculated byte
	Found      byte
	Raw        []byte
}

func (e *CrcMismatchError) Error() string {
	return fmt.Sprintf("frame: crc mismatch: calculated %#02x, found %#02x", e.Calculated, e.Found)
}

func (e *CrcMismatchError) Class() protocol.Class { return protocol.ClassIntegrity }

// MissingEndDelimError reports a frame whose checksum verified but whose
// terminating byte is not the end delimiter.
type MissingEndDelimError struct {
	Index int
	Found byte
}

func (e *MissingEndDelimError) Error() string {
	return fmt.Sprintf("frame: missing end delimiter at index %d, found %#02x", e.Index, e.Found)
}

func (e *MissingEndDelimError) Class() protocol.Class { return protocol.ClassStructural }
