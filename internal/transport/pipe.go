package transport

// Pipe is a fixed-capacity in-memory byte queue implementing both Source
// and Sink. It is the loopback transport used by tests and by the demo
// binary; it is not safe for concurrent use, matching the single-threaded
// poll model of the protocol core.
type Pipe struct {
	buf []byte
	r   int
	n   int

	// WriteBudget, when non-negative, is decremented on every accepted
	// write; once it reaches zero WriteByte reports ErrWouldBlock until
	// the budget is topped up. Tests use it to simulate a sink that
	// accepts one byte per flush attempt.
	WriteBudget int

	// ReadErr / WriteErr, when set, are returned by the next ReadByte /
	// WriteByte call as hard transport errors.
	ReadErr  error
	WriteErr error
}

// NewPipe returns a pipe holding at most capacity bytes.
func NewPipe(capacity int) *Pipe {
	return &Pipe{buf: make([]byte, capacity), WriteBudget: -1}
}

// Duplex returns two connected endpoints: bytes written to one side are
// read from the other.
func Duplex(capacity int) (*Endpoint, *Endpoint) {
	a := NewPipe(capacity)
	b := NewPipe(capacity)
	return &Endpoint{rx: a, tx: b}, &Endpoint{rx: b, tx: a}
}

// Endpoint is one side of a duplex in-memory link.
type Endpoint struct {
	rx *Pipe
	tx *Pipe
}

func (e *Endpoint) ReadByte() (byte, error) { return e.rx.ReadByte() }
func (e *Endpoint) WriteByte(b byte) error  { return e.tx.WriteByte(b) }

// ReadByte pops the oldest queued byte, or reports ErrWouldBlock when the
// queue is empty.
func (p *Pipe) ReadByte() (byte, error) {
	if p.ReadErr != nil {
		err := p.ReadErr
		p.ReadErr = nil
		return 0, err
	}
	if p.n == 0 {
		return 0, ErrWouldBlock
	}
	b := p.buf[p.r]
	p.r = (p.r + 1) % len(p.buf)
	p.n--
	return b, nil
}

// WriteByte queues one byte, or reports ErrWouldBlock when the queue is
// full or the write budget is exhausted.
func (p *Pipe) WriteByte(b byte) error {
	if p.WriteErr != nil {
		err := p.WriteErr
		p.WriteErr = nil
		return err
	}
	if p.WriteBudget == 0 {
		return ErrWouldBlock
	}
	if p.n == len(p.buf) {
		return ErrWouldBlock
	}
	p.buf[(p.r+p.n)%len(p.buf)] = b
	p.n++
	if p.WriteBudget > 0 {
		p.WriteBudget--
	}
	return nil
}

// Len reports the number of queued bytes.
func (p *Pipe) Len() int { return p.n }

// Feed queues all given bytes, panicking on overflow. Test helper.
func (p *Pipe) Feed(data []byte) {
	for _, b := range data {
		if err := p.WriteByte(b); err != nil {
			panic("transport: feed overflow: " + err.Error())
		}
	}
}

// DrainAll pops and returns everything currently queued. Test helper.
func (p *Pipe) DrainAll() []byte {
	out := make([]byte, 0, p.n)
	for p.n > 0 {
		b, _ := p.ReadByte()
		out = append(out, b)
	}
	return out
}
