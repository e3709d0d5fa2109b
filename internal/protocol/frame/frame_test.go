package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/linkctl/internal/stream"
	"github.com/danmuck/linkctl/internal/transport"
)

func encodeValid(t *testing.T, payload []byte) []byte {
	t.Helper()
	buf := make([]byte, MaxSize)
	n, err := Encode(buf, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf[:n]
}

func TestRoundTripAllLengths(t *testing.T) {
	for size := 0; size <= MaxPayload; size++ {
		payload := make([]byte, size)
		for i := range payload {
			// Include delimiter bytes inside payloads; framing must not
			// care about payload content.
			payload[i] = byte(i * 7)
		}
		wire := encodeValid(t, payload)
		if len(wire) != size+Overhead {
			t.Fatalf("size %d: wire length %d", size, len(wire))
		}
		f, err := Decode(wire)
		if err != nil {
			t.Fatalf("size %d: decode: %v", size, err)
		}
		if int(f.Length) != size || !bytes.Equal(f.Payload, payload) {
			t.Fatalf("size %d: round trip mismatch", size)
		}
	}
}

func TestEncodeTruncatesOversizedPayload(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}
	wire := encodeValid(t, payload)
	f, err := Decode(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if int(f.Length) != MaxPayload || !bytes.Equal(f.Payload, payload[:MaxPayload]) {
		t.Fatal("payload was not truncated to the first 255 bytes")
	}
}

func TestEncodeBufferTooSmall(t *testing.T) {
	dst := make([]byte, 10)
	var tooSmall *EncodeBufferTooSmallError
	_, err := Encode(dst, make([]byte, 20))
	if !errors.As(err, &tooSmall) {
		t.Fatalf("expected EncodeBufferTooSmallError, got %v", err)
	}
	if tooSmall.Expected != 24 || tooSmall.Found != 10 {
		t.Fatalf("error payload: %+v", tooSmall)
	}
}

func TestDecodeTruncatedNeverFalselyAccepts(t *testing.T) {
	wire := encodeValid(t, []byte("telemetry"))
	for cut := 0; cut < len(wire); cut++ {
		_, err := Decode(wire[:cut])
		var short *DecodeBufferTooSmallError
		if !errors.As(err, &short) {
			t.Fatalf("prefix %d: expected DecodeBufferTooSmallError, got %v", cut, err)
		}
	}
}

func TestDecodeMissingStartDelim(t *testing.T) {
	wire := encodeValid(t, []byte{1, 2, 3})
	wire[0] = 0x00
	if _, err := Decode(wire); !errors.Is(err, ErrMissingStartDelim) {
		t.Fatalf("expected ErrMissingStartDelim, got %v", err)
	}
}

func TestSingleByteCorruptionYieldsCrcMismatch(t *testing.T) {
	payload := []byte{0x10, 0x20, DelimEnd, 0x40}
	wire := encodeValid(t, payload)
	// Flip every bit of every payload and checksum byte; the length byte
	// and delimiters are covered by the structural checks.
	for idx := 2; idx < len(wire)-1; idx++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), wire...)
			corrupt[idx] ^= 1 << bit
			_, err := Decode(corrupt)
			var crc *CrcMismatchError
			if !errors.As(err, &crc) {
				t.Fatalf("byte %d bit %d: expected CrcMismatchError, got %v", idx, bit, err)
			}
			if !bytes.Equal(crc.Raw, corrupt[:len(wire)]) {
				t.Fatalf("byte %d bit %d: raw bytes not retained", idx, bit)
			}
		}
	}
}

func TestDecodeEarlyEndDelim(t *testing.T) {
	// Declared length overstates the real frame: a shorter frame's end
	// delimiter appears before the declared terminator slot.
	inner := encodeValid(t, []byte{1, 2, 3})
	wire := append([]byte(nil), inner...)
	wire[1] = 40 // overstate length
	wire = append(wire, make([]byte, 40)...)
	_, err := Decode(wire)
	var early *EarlyEndDelimError
	if !errors.As(err, &early) {
		t.Fatalf("expected EarlyEndDelimError, got %v", err)
	}
	if early.Expected != 43 || early.FoundAt != len(inner)-1 {
		t.Fatalf("error payload: %+v", early)
	}
}

func TestDecodeMissingEndDelim(t *testing.T) {
	// No end delimiter anywhere and a correct checksum: only the
	// terminator byte is corrupted.
	wire := encodeValid(t, []byte{1, 2, 3})
	wire[len(wire)-1] = 0x00
	_, err := Decode(wire)
	var missing *MissingEndDelimError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingEndDelimError, got %v", err)
	}
	if missing.Index != len(wire)-1 || missing.Found != 0x00 {
		t.Fatalf("error payload: %+v", missing)
	}
}

func TestChecksumBeforeEndDelimVerdict(t *testing.T) {
	// Both the payload and the terminator are corrupted; the checksum
	// verdict takes precedence over the missing terminator.
	wire := encodeValid(t, []byte{1, 2, 3})
	wire[2] ^= 0xFF
	wire[len(wire)-1] = 0x00
	_, err := Decode(wire)
	var crc *CrcMismatchError
	if !errors.As(err, &crc) {
		t.Fatalf("expected CrcMismatchError, got %v", err)
	}
}

func recvAll(t *testing.T, rx *stream.Reader, calls int) ([][]byte, []error) {
	t.Helper()
	var frames [][]byte
	var errs []error
	for i := 0; i < calls; i++ {
		f, err := Recv(rx)
		if err != nil {
			if !errors.Is(err, transport.ErrWouldBlock) {
				errs = append(errs, err)
			}
			continue
		}
		frames = append(frames, f.Payload)
	}
	return frames, errs
}

func TestRecvResynchronizesAcrossGarbage(t *testing.T) {
	frameA := encodeValid(t, []byte("frame-a"))
	frameB := encodeValid(t, []byte("frame-b"))

	src := transport.NewPipe(512)
	src.Feed([]byte{0x01, 0x02, 0x03})
	src.Feed(frameA)
	src.Feed([]byte{0x99, 0x98})
	src.Feed(frameB)

	rx := stream.NewReader(src, 512)
	frames, errs := recvAll(t, rx, 16)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(frames) != 2 {
		t.Fatalf("frame count: got %d", len(frames))
	}
	if !bytes.Equal(frames[0], []byte("frame-a")) || !bytes.Equal(frames[1], []byte("frame-b")) {
		t.Fatalf("frames out of order or corrupted: %q %q", frames[0], frames[1])
	}
	if rx.Len() != 0 {
		t.Fatalf("bytes left buffered: %d", rx.Len())
	}
}

func TestRecvWouldBlockOnPartialFrame(t *testing.T) {
	wire := encodeValid(t, []byte("partial"))
	src := transport.NewPipe(64)
	src.Feed(wire[:5])
	rx := stream.NewReader(src, 64)

	if _, err := Recv(rx); !errors.Is(err, transport.ErrWouldBlock) {
		t.Fatalf("expected would-block, got %v", err)
	}
	// The partial frame must remain buffered, not discarded.
	if rx.Len() != 5 {
		t.Fatalf("buffered: got %d", rx.Len())
	}

	src.Feed(wire[5:])
	f, err := Recv(rx)
	if err != nil {
		t.Fatalf("recv after completion: %v", err)
	}
	if !bytes.Equal(f.Payload, []byte("partial")) {
		t.Fatalf("payload: %q", f.Payload)
	}
}

func TestRecvCorruptFrameIsRecoverable(t *testing.T) {
	good := encodeValid(t, []byte("good"))
	bad := encodeValid(t, []byte("bad!"))
	bad[3] ^= 0x55 // corrupt payload, keep length

	src := transport.NewPipe(256)
	src.Feed(bad)
	src.Feed(good)
	rx := stream.NewReader(src, 256)

	frames, errs := recvAll(t, rx, 32)
	if len(errs) == 0 {
		t.Fatal("corruption was silently accepted")
	}
	var crc *CrcMismatchError
	if !errors.As(errs[0], &crc) {
		t.Fatalf("expected CrcMismatchError first, got %v", errs[0])
	}
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte("good")) {
		t.Fatalf("good frame not recovered: %v", frames)
	}
}

func TestRecvDiscardsPureGarbage(t *testing.T) {
	src := transport.NewPipe(64)
	src.Feed([]byte{0x01, 0x02, 0x03, 0x04})
	rx := stream.NewReader(src, 64)
	if _, err := Recv(rx); !errors.Is(err, transport.ErrWouldBlock) {
		t.Fatalf("expected would-block, got %v", err)
	}
	if rx.Len() != 0 {
		t.Fatalf("garbage with no frame start must be discarded, buffered=%d", rx.Len())
	}
}

func TestRecvPropagatesHardSourceError(t *testing.T) {
	src := transport.NewPipe(16)
	boom := errors.New("uart: noise")
	src.ReadErr = boom
	rx := stream.NewReader(src, 16)
	if _, err := Recv(rx); !errors.Is(err, boom) {
		t.Fatalf("expected hard error, got %v", err)
	}
}
