// Package frame implements the delimited, length-prefixed, checksummed
// wire frame.
//
// Wire layout:
//
//	+-------+--------+------------------+-------+-------+
//	| 0xAA  | length | payload          | crc8  | 0x55  |
//	+-------+--------+------------------+-------+-------+
//	|  1B   |   1B   |  length bytes    |  1B   |  1B   |
//
// The checksum is CRC-8/MAXIM over the length byte followed by the
// payload. A frame occupies len(payload)+4 bytes on the wire.
package frame

import (
	"bytes"
	"errors"

	"github.com/sigurn/crc8"

	"github.com/danmuck/linkctl/internal/stream"
	"github.com/danmuck/linkctl/internal/transport"
)

const (
	// DelimStart and DelimEnd bracket every frame. They are distinct so a
	// terminator is never mistaken for the start of the next frame.
	DelimStart byte = 0xAA
	DelimEnd   byte = 0x55

	// Overhead is the fixed per-frame cost: both delimiters, the length
	// byte and the checksum byte.
	Overhead = 4

	// MaxPayload is bounded by the u8 length field.
	MaxPayload = 255

	// MaxSize is the largest on-wire frame.
	MaxSize = MaxPayload + Overhead
)

var crcTable = crc8.MakeTable(crc8.CRC8_MAXIM)

// Checksum computes the frame checksum over the length byte and payload.
func Checksum(length byte, payload []byte) byte {
	c := crc8.Init(crcTable)
	c = crc8.Update(c, []byte{length}, crcTable)
	c = crc8.Update(c, payload, crcTable)
	return crc8.Complete(c, crcTable)
}

// Frame is one decoded wire frame. Payload aliases the decode buffer;
// Recv returns an owned copy instead.
type Frame struct {
	Length   uint8
	Payload  []byte
	Checksum uint8
}

// WireSize is the number of bytes the frame occupies on the wire.
func (f Frame) WireSize() int {
	return len(f.Payload) + Overhead
}

// Encode writes payload as a complete frame into dst and returns the
// number of bytes written. Payloads longer than MaxPayload are truncated
// to their first MaxPayload bytes; the length field always matches what
// was actually framed.
func Encode(dst, payload []byte) (int, error) {
	size := len(payload)
	if size > MaxPayload {
		size = MaxPayload
	}
	if len(dst) < size+Overhead {
		return 0, &EncodeBufferTooSmallError{Expected: size + Overhead, Found: len(dst)}
	}
	dst[0] = DelimStart
	dst[1] = byte(size)
	copy(dst[2:2+size], payload[:size])
	dst[2+size] = Checksum(byte(size), payload[:size])
	dst[3+size] = DelimEnd
	return size + Overhead, nil
}

// Decode parses one frame from the front of buf. Checks run in a strict
// order so that callers can distinguish "need more bytes" from corruption:
//
//  1. fewer than Overhead bytes             -> DecodeBufferTooSmallError
//  2. missing start delimiter               -> ErrMissingStartDelim
//  3. buf shorter than the declared frame   -> DecodeBufferTooSmallError
//  4. end delimiter found before its slot   -> EarlyEndDelimError
//  5. checksum mismatch                     -> CrcMismatchError
//  6. end delimiter absent entirely         -> MissingEndDelimError
//
// Step 4 only fails when a terminator exists at an earlier offset: the
// declared length then overstates the real frame, which is corruption,
// not truncation. When no terminator is found anywhere the length field
// may still be correct with only the terminating byte corrupted, so the
// checksum verdict comes first.
func Decode(buf []byte) (Frame, error) {
	if len(buf) < Overhead {
		return Frame{}, &DecodeBufferTooSmallError{ExpectedAtLeast: Overhead, Found: len(buf)}
	}
	if buf[0] != DelimStart {
		return Frame{}, ErrMissingStartDelim
	}
	size := int(buf[1])
	if len(buf) < size+Overhead {
		return Frame{}, &DecodeBufferTooSmallError{ExpectedAtLeast: size + Overhead, Found: len(buf)}
	}
	end := size + 3
	if buf[end] != DelimEnd {
		if at := bytes.LastIndexByte(buf[:end], DelimEnd); at >= 0 {
			return Frame{}, &EarlyEndDelimError{FoundAt: at, Expected: end}
		}
	}
	payload := buf[2 : 2+size]
	calc := Checksum(byte(size), payload)
	found := buf[2+size]
	if calc != found {
		raw := make([]byte, size+Overhead)
		copy(raw, buf[:size+Overhead])
		return Frame{}, &CrcMismatchError{Calculated: calc, Found: found, Raw: raw}
	}
	if buf[end] != DelimEnd {
		return Frame{}, &MissingEndDelimError{Index: end, Found: buf[end]}
	}
	return Frame{Length: byte(size), Payload: payload, Checksum: found}, nil
}

// Recv scans a buffered stream for the next frame, resynchronizing past
// garbage and corrupt frames.
//
// Bytes before the first start delimiter are discarded outright (all of
// them when no delimiter is present). A frame that has not fully arrived
// reports transport.ErrWouldBlock. A structural or integrity failure
// consumes exactly one byte, the start delimiter presumed to belong to
// the corrupt frame, so the next call resumes scanning past it; the error
// is surfaced but the caller may keep polling. On success exactly the
// decoded frame is drained and its payload is returned as an owned copy.
func Recv(rx *stream.Reader) (Frame, error) {
	if err := rx.Buffer(); err != nil {
		return Frame{}, err
	}
	buf := rx.Slice()
	start := bytes.IndexByte(buf, DelimStart)
	if start < 0 {
		rx.Drain(len(buf))
		return Frame{}, transport.ErrWouldBlock
	}
	if start > 0 {
		rx.Drain(start)
		buf = buf[start:]
	}
	f, err := Decode(buf)
	if err != nil {
		var short *DecodeBufferTooSmallError
		if errors.As(err, &short) {
			return Frame{}, transport.ErrWouldBlock
		}
		rx.Drain(1)
		return Frame{}, err
	}
	payload := make([]byte, len(f.Payload))
	copy(payload, f.Payload)
	f.Payload = payload
	rx.Drain(f.WireSize())
	return f, nil
}
