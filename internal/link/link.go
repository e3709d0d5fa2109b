// Package link owns the acknowledgment-based chunked-delivery state
// machine over a pair of raw transports.
//
// Ownership boundary:
// - blocking send with per-chunk ack wait
// - blocking single-packet receive and the receiving-side ack helpers
// - the poll-style buffered frame transceiver
package link

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/linkctl/internal/observability"
	"github.com/danmuck/linkctl/internal/protocol"
	"github.com/danmuck/linkctl/internal/protocol/frame"
	"github.com/danmuck/linkctl/internal/protocol/packet"
	"github.com/danmuck/linkctl/internal/transport"
)

// ErrPayloadTooLarge reports a Receive destination too small for the
// conversation being assembled.
var ErrPayloadTooLarge = errors.New("link: receive buffer too small for conversation")

// UnexpectedKindError reports a packet that arrived while an Ack was the
// only acceptable kind.
type UnexpectedKindError struct {
	Kind packet.Kind
}

func (e *UnexpectedKindError) Error() string {
	return fmt.Sprintf("link: expected ack, got %s packet", e.Kind)
}

func (e *UnexpectedKindError) Class() protocol.Class { return protocol.ClassProtocol }

// ConversationMismatchError reports an ack correlated to a different
// conversation than the chunk just sent.
type ConversationMismatchError struct {
	Expected uint8
	Found    uint8
}

func (e *ConversationMismatchError) Error() string {
	return fmt.Sprintf("link: ack for conversation %d, expected %d", e.Found, e.Expected)
}

func (e *ConversationMismatchError) Class() protocol.Class { return protocol.ClassProtocol }

// Conn is one endpoint of a reliable serial link. It owns its transports
// exclusively; it is single-owner and not safe for concurrent use.
type Conn struct {
	src transport.Source
	dst transport.Sink
	log zerolog.Logger
}

// New returns a connection over the given transport pair.
func New(src transport.Source, dst transport.Sink) *Conn {
	return &Conn{
		src: src,
		dst: dst,
		log: log.With().Str("component", "link").Logger(),
	}
}

// Send delivers payload chunk by chunk under the given conversation id,
// waiting for a matching Ack after every chunk before sending the next.
//
// Send blocks: each chunk write retries until the transport accepts it
// and each ack wait spins until a frame arrives or the transport fails
// hard. There is no internal timeout; a peer that stops responding stalls
// the call until the caller's transport imposes a failure. Any non-Ack
// packet or a conversation mismatch aborts the whole send; chunks the
// peer already accepted are not retracted and no abort notice is sent.
func (c *Conn) Send(payload []byte, conversation uint8) error {
	chunks := packet.Split(payload, conversation)
	for i, p := range chunks {
		if err := c.sendPacket(p); err != nil {
			return err
		}
		observability.RecordChunkSent()

		ack, err := c.RecvPacket()
		if err != nil {
			c.log.Debug().Err(err).Int("chunk", i).Uint8("conversation", conversation).
				Msg("ack wait failed")
			return err
		}
		if ack.Header.Kind != packet.KindAck {
			return &UnexpectedKindError{Kind: ack.Header.Kind}
		}
		if ack.Header.Conversation != conversation {
			return &ConversationMismatchError{Expected: conversation, Found: ack.Header.Conversation}
		}
		observability.RecordChunkAcked()
	}
	c.log.Debug().Int("chunks", len(chunks)).Uint8("conversation", conversation).
		Int("bytes", len(payload)).Msg("send complete")
	return nil
}

// SendAck emits a single Ack packet for the given conversation, blocking
// until the transport accepts the whole frame.
func (c *Conn) SendAck(conversation uint8) error {
	return c.sendPacket(packet.New(packet.KindAck, conversation, nil))
}

// RecvPacket blocks until one complete delimited frame arrives on the raw
// transport, then decodes the packet inside it. The returned packet owns
// its payload. This path reads the wire directly; it must not be mixed
// with a buffered reader on the same source.
func (c *Conn) RecvPacket() (packet.Owned, error) {
	var buf [frame.MaxSize]byte

	// Scan for the start delimiter, discarding everything before it.
	for {
		b, err := c.readByte()
		if err != nil {
			return packet.Owned{}, err
		}
		if b == frame.DelimStart {
			break
		}
	}
	buf[0] = frame.DelimStart

	size, err := c.readByte()
	if err != nil {
		return packet.Owned{}, err
	}
	buf[1] = size

	// Payload, checksum and end delimiter.
	total := int(size) + frame.Overhead
	for i := 2; i < total; i++ {
		b, err := c.readByte()
		if err != nil {
			return packet.Owned{}, err
		}
		buf[i] = b
	}

	f, err := frame.Decode(buf[:total])
	if err != nil {
		observability.RecordDecodeError(protocol.ClassOf(err))
		return packet.Owned{}, err
	}
	p, err := packet.Decode(f.Payload)
	if err != nil {
		observability.RecordDecodeError(protocol.ClassOf(err))
		return packet.Owned{}, err
	}
	observability.RecordFrameReceived()
	return p.Owned(), nil
}

// Receive assembles one full conversation into dst, acknowledging every
// chunk as it arrives. A chunk is terminal when it is tagged DataLast or
// carries less than a full chunk of data; exact-multiple conversations
// never emit DataLast (the sender's documented chunking quirk), so their
// final full chunk is followed by whatever the caller sends next. Hosts
// exchanging exact-multiple payloads must length-prefix them one level
// up. Returns the assembled size and the conversation id.
func (c *Conn) Receive(dst []byte) (int, uint8, error) {
	n := 0
	var conversation uint8
	for first := true; ; first = false {
		p, err := c.RecvPacket()
		if err != nil {
			return n, conversation, err
		}
		if first {
			conversation = p.Header.Conversation
		}
		data := p.Data()
		if n+len(data) > len(dst) {
			return n, conversation, ErrPayloadTooLarge
		}
		copy(dst[n:], data)
		n += len(data)
		if err := c.SendAck(p.Header.Conversation); err != nil {
			return n, conversation, err
		}
		if p.Header.Kind == packet.KindDataLast || len(data) < packet.MaxData {
			return n, conversation, nil
		}
	}
}

// sendPacket wraps p in a frame and writes it out, retrying through
// would-block until the transport takes every byte.
func (c *Conn) sendPacket(p packet.Packet) error {
	var pbuf [packet.MaxSize]byte
	n, err := p.Encode(pbuf[:])
	if err != nil {
		return err
	}
	var fbuf [frame.MaxSize]byte
	fn, err := frame.Encode(fbuf[:], pbuf[:n])
	if err != nil {
		return err
	}
	for _, b := range fbuf[:fn] {
		for {
			err := c.dst.WriteByte(b)
			if err == nil {
				break
			}
			if !errors.Is(err, transport.ErrWouldBlock) {
				return err
			}
		}
	}
	observability.RecordFrameSent()
	return nil
}

// readByte spins on the raw source until a byte is ready or the transport
// fails hard.
func (c *Conn) readByte() (byte, error) {
	for {
		b, err := c.src.ReadByte()
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, transport.ErrWouldBlock) {
			return 0, err
		}
	}
}
