// Package stream adapts the raw non-blocking byte transport into buffers
// a parser can scan, peek and drain, and a write queue that survives
// partial flushes.
package stream

import (
	"errors"
	"fmt"

	"github.com/danmuck/linkctl/internal/transport"
)

// ErrBufferFull reports a write queue with no room for the bytes being
// queued. Nothing is enqueued when this is returned.
var ErrBufferFull = errors.New("stream: buffer full")

// Reader accumulates bytes pulled from a Source into a fixed-capacity
// queue, preserving arrival order. The backing storage compacts in place,
// so Slice always exposes everything buffered; callers still must not
// assume that, per the stream contract.
type Reader struct {
	src   transport.Source
	buf   []byte
	start int
	end   int
}

// NewReader returns a reader buffering at most capacity bytes.
func NewReader(src transport.Source, capacity int) *Reader {
	return &Reader{src: src, buf: make([]byte, capacity)}
}

// Buffer pulls everything immediately available from the source into the
// queue, stopping at the first would-block or hard error. Would-block is
// swallowed: the absence of new data is not a failure. When the queue is
// full, pulling stops; unread bytes stay in the device and no data is
// lost.
func (r *Reader) Buffer() error {
	for {
		if r.end == len(r.buf) {
			r.compact()
			if r.end == len(r.buf) {
				return nil
			}
		}
		b, err := r.src.ReadByte()
		if err != nil {
			if errors.Is(err, transport.ErrWouldBlock) {
				return nil
			}
			return err
		}
		r.buf[r.end] = b
		r.end++
	}
}

// Peek returns the oldest buffered byte without consuming it.
func (r *Reader) Peek() (byte, bool) {
	if r.start == r.end {
		return 0, false
	}
	return r.buf[r.start], true
}

// Slice returns the contiguous readable prefix of the queue. The slice is
// invalidated by the next Buffer or Drain call.
func (r *Reader) Slice() []byte {
	return r.buf[r.start:r.end]
}

// Len reports the number of buffered bytes.
func (r *Reader) Len() int {
	return r.end - r.start
}

// Drain removes the first n bytes from the queue. Draining more than
// Len() is a programmer error and panics.
func (r *Reader) Drain(n int) {
	if n > r.Len() {
		panic(fmt.Sprintf("stream: drain %d exceeds buffered length %d", n, r.Len()))
	}
	r.start += n
	if r.start == r.end {
		r.start, r.end = 0, 0
	}
}

func (r *Reader) compact() {
	if r.start == 0 {
		return
	}
	n := copy(r.buf, r.buf[r.start:r.end])
	r.start, r.end = 0, n
}

// Writer queues outgoing bytes ahead of a Sink that may refuse them. A
// byte is dequeued only after the sink accepts it, so no byte is ever
// lost or duplicated across repeated partial flushes.
type Writer struct {
	dst   transport.Sink
	buf   []byte
	start int
	end   int
}

// NewWriter returns a writer queueing at most capacity bytes.
func NewWriter(dst transport.Sink, capacity int) *Writer {
	return &Writer{dst: dst, buf: make([]byte, capacity)}
}

// WriteAll queues every byte of p, then flushes as far as the sink
// currently allows. It returns ErrBufferFull (queueing nothing) when p
// does not fit, transport.ErrWouldBlock when queued bytes remain after
// the flush, and nil when everything reached the sink.
func (w *Writer) WriteAll(p []byte) error {
	if w.free() < len(p) {
		w.compact()
		if w.free() < len(p) {
			return ErrBufferFull
		}
	}
	copy(w.buf[w.end:], p)
	w.end += len(p)
	return w.Flush()
}

// Flush writes queued bytes to the sink one at a time until the queue is
// empty or the sink reports would-block. It returns
// transport.ErrWouldBlock when bytes remain queued.
func (w *Writer) Flush() error {
	for w.start < w.end {
		if err := w.dst.WriteByte(w.buf[w.start]); err != nil {
			if errors.Is(err, transport.ErrWouldBlock) {
				return transport.ErrWouldBlock
			}
			return err
		}
		w.start++
	}
	w.start, w.end = 0, 0
	return nil
}

// Buffered reports the number of bytes still queued.
func (w *Writer) Buffered() int {
	return w.end - w.start
}

func (w *Writer) free() int {
	return len(w.buf) - w.end
}

func (w *Writer) compact() {
	if w.start == 0 {
		return
	}
	n := copy(w.buf, w.buf[w.start:w.end])
	w.start, w.end = 0, n
}
