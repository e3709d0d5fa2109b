package link

import (
	"errors"

	"github.com/danmuck/linkctl/internal/observability"
	"github.com/danmuck/linkctl/internal/protocol"
	"github.com/danmuck/linkctl/internal/protocol/frame"
	"github.com/danmuck/linkctl/internal/stream"
	"github.com/danmuck/linkctl/internal/transport"
)

// Transceiver is the poll-style face of the link: frames go out through a
// buffered writer that survives partial flushes and come in through the
// resynchronizing buffered receive. Every method either completes
// immediately or reports transport.ErrWouldBlock; the caller's loop is
// the only scheduler.
type Transceiver struct {
	tx *stream.Writer
	rx *stream.Reader
}

// NewTransceiver wraps a transport pair in buffered streams. Buffer
// capacities hold a handful of maximum-size frames so a slow sink or a
// bursty source does not stall the poll loop.
func NewTransceiver(src transport.Source, dst transport.Sink) *Transceiver {
	return &Transceiver{
		tx: stream.NewWriter(dst, 4*frame.MaxSize),
		rx: stream.NewReader(src, 4*frame.MaxSize),
	}
}

// SendFrame frames payload and queues it for transmission. A would-block
// result means the frame is queued in full and later Flush calls will
// finish pushing it out; only stream.ErrBufferFull or a hard transport
// error leaves the frame unsent.
func (t *Transceiver) SendFrame(payload []byte) error {
	var buf [frame.MaxSize]byte
	n, err := frame.Encode(buf[:], payload)
	if err != nil {
		return err
	}
	err = t.tx.WriteAll(buf[:n])
	if err == nil || errors.Is(err, transport.ErrWouldBlock) {
		observability.RecordFrameSent()
	}
	return err
}

// RecvFrame polls for the next complete frame, resynchronizing past
// corruption. Structural and integrity errors are recoverable here: the
// offending bytes have been discarded and the caller may keep polling.
func (t *Transceiver) RecvFrame() (frame.Frame, error) {
	f, err := frame.Recv(t.rx)
	if err != nil {
		if class := protocol.ClassOf(err); class != protocol.ClassUnknown {
			observability.RecordDecodeError(class)
		}
		return frame.Frame{}, err
	}
	observability.RecordFrameReceived()
	return f, nil
}

// Flush resumes a partial transmission, reporting would-block while bytes
// remain queued.
func (t *Transceiver) Flush() error {
	return t.tx.Flush()
}

// PendingWrite reports the number of bytes still queued for transmission.
func (t *Transceiver) PendingWrite() int {
	return t.tx.Buffered()
}
