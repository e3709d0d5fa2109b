// Package packet implements the header-addressed chunk carried inside a
// frame.
//
// Header layout, three bytes:
//
//	byte 0: kind in bits 0..2, bits 3..7 reserved (zero on encode,
//	        ignored on decode)
//	byte 1: conversation id
//	byte 2: payload length
//
// The header carries no checksum of its own; integrity comes from the
// enclosing frame.
package packet

import (
	"fmt"

	"github.com/danmuck/linkctl/internal/protocol"
)

// Kind tags the role of a packet within a conversation.
type Kind uint8

const (
	KindData         Kind = 0
	KindDataContinue Kind = 1
	KindDataLast     Kind = 2
	KindAck          Kind = 4
	KindError        Kind = 5
	KindReserved     Kind = 6
)

// KindOf maps the low three bits of a header byte to a Kind. Unassigned
// patterns fall back to KindReserved.
func KindOf(b byte) Kind {
	switch k := Kind(b & 0x07); k {
	case KindData, KindDataContinue, KindDataLast, KindAck, KindError:
		return k
	default:
		return KindReserved
	}
}

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindDataContinue:
		return "data-continue"
	case KindDataLast:
		return "data-last"
	case KindAck:
		return "ack"
	case KindError:
		return "error"
	default:
		return "reserved"
	}
}

const (
	// HeaderSize is the packed header length.
	HeaderSize = 3

	// MaxSize is the largest packet that fits a frame payload.
	MaxSize = 255

	// MaxData is the chunk capacity: the header consumes HeaderSize of
	// the MaxSize length-addressable bytes.
	MaxData = MaxSize - HeaderSize
)

// Header addresses one chunk.
type Header struct {
	Kind         Kind
	Conversation uint8
	Length       uint8
}

// EncodeHeader packs h into its three-byte wire form.
func EncodeHeader(h Header) [HeaderSize]byte {
	return [HeaderSize]byte{byte(h.Kind) & 0x07, h.Conversation, h.Length}
}

// DecodeHeader unpacks a header from the front of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, &NotEnoughDataForHeaderError{Expected: HeaderSize, Found: len(buf)}
	}
	return Header{
		Kind:         KindOf(buf[0]),
		Conversation: buf[1],
		Length:       buf[2],
	}, nil
}

// Packet is one header-addressed chunk. Data aliases the caller's buffer.
type Packet struct {
	Header Header
	Data   []byte
}

// New builds a packet over data. Data longer than MaxData is a programmer
// error upstream; the length field truncates to u8 as the header
// dictates.
func New(kind Kind, conversation uint8, data []byte) Packet {
	return Packet{
		Header: Header{Kind: kind, Conversation: conversation, Length: uint8(len(data))},
		Data:   data,
	}
}

// Size is the encoded length: header plus payload.
func (p Packet) Size() int {
	return HeaderSize + len(p.Data)
}

// Encode writes the packet into dst and returns the bytes written.
func (p Packet) Encode(dst []byte) (int, error) {
	if len(dst) < p.Size() {
		return 0, &EncodeBufferTooSmallError{ExpectedAtLeast: p.Size(), Found: len(dst)}
	}
	h := EncodeHeader(p.Header)
	copy(dst, h[:])
	copy(dst[HeaderSize:], p.Data)
	return p.Size(), nil
}

// Decode parses one packet from the front of buf. The returned packet's
// Data aliases buf.
func Decode(buf []byte) (Packet, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return Packet{}, err
	}
	if len(buf) < HeaderSize+int(h.Length) {
		return Packet{}, &DecodeBufferTooSmallError{
			ExpectedAtLeast: HeaderSize + int(h.Length),
			Found:           len(buf),
		}
	}
	return Packet{Header: h, Data: buf[HeaderSize : HeaderSize+int(h.Length)]}, nil
}

// Owned is a packet whose payload lives in its own fixed-capacity buffer,
// safe to keep after the decode buffer is reused.
type Owned struct {
	Header Header
	buf    [MaxData]byte
}

// Owned copies the packet's payload out of the shared decode buffer.
func (p Packet) Owned() Owned {
	o := Owned{Header: p.Header}
	copy(o.buf[:], p.Data)
	return o
}

// Data returns the owned payload.
func (o *Owned) Data() []byte {
	return o.buf[:o.Header.Length]
}

// Split slices payload into an ordered chunk sequence, at most MaxData
// bytes each. The chunk at index len(payload)/MaxData is tagged
// KindDataLast, index zero KindData and everything between
// KindDataContinue. Two quirks follow from the wire format's literal
// index arithmetic and are preserved deliberately: an exact multiple of
// MaxData computes a last index that no emitted chunk reaches, so such
// payloads never carry KindDataLast (a single short payload does, since
// its only chunk sits at index zero == len/MaxData); and an empty payload
// yields no packets at all.
func Split(payload []byte, conversation uint8) []Packet {
	last := len(payload) / MaxData
	var packets []Packet
	for i := 0; i*MaxData < len(payload); i++ {
		hi := (i + 1) * MaxData
		if hi > len(payload) {
			hi = len(payload)
		}
		chunk := payload[i*MaxData : hi]
		var kind Kind
		switch {
		case i == last:
			kind = KindDataLast
		case i == 0:
			kind = KindData
		default:
			kind = KindDataContinue
		}
		packets = append(packets, New(kind, conversation, chunk))
	}
	return packets
}

// NotEnoughDataForHeaderError reports a buffer shorter than the packed
// header.
type NotEnoughDataForHeaderError struct {
	Expected int
	Found    int
}

func (e *NotEnoughDataForHeaderError) Error() string {
	return fmt.Sprintf("packet: not enough data for header: expected %d, found %d", e.Expected, e.Found)
}

func (e *NotEnoughDataForHeaderError) Class() protocol.Class { return protocol.ClassStructural }

// EncodeBufferTooSmallError reports a destination too small for the
// packet being encoded.
type EncodeBufferTooSmallError struct {
	ExpectedAtLeast int
	Found           int
}

func (e *EncodeBufferTooSmallError) Error() string {
	return fmt.Sprintf("packet: encode buffer too small: expected at least %d, found %d", e.ExpectedAtLeast, e.Found)
}

func (e *EncodeBufferTooSmallError) Class() protocol.Class { return protocol.ClassStructural }

// DecodeBufferTooSmallError reports a buffer that cannot hold the payload
// its header declares.
type DecodeBufferTooSmallError struct {
	ExpectedAtLeast int
	Found           int
}

func (e *DecodeBufferTooSmallError) Error() string {
	return fmt.Sprintf("packet: decode buffer too small: expected at least %d, found %d", e.ExpectedAtLeast, e.Found)
}

func (e *DecodeBufferTooSmallError) Class() protocol.Class { return protocol.ClassStructural }
