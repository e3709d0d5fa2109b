// Package serialport adapts a host UART device to the transport contract.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/danmuck/linkctl/internal/transport"
)

// Config holds serial port settings for one link endpoint.
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3".
	Device string

	// Baud rate of the link.
	Baud int

	// ReadTimeout bounds a single poll of the device. A timed-out read
	// surfaces as transport.ErrWouldBlock, keeping the contract
	// timeout-free above this line.
	ReadTimeout time.Duration
}

// DefaultConfig returns settings suitable for a 115200 baud UART polled
// from a host loop.
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 10 * time.Millisecond,
	}
}

// Port exposes a tarm/serial port as a transport Source and Sink.
type Port struct {
	port *serial.Port
}

var (
	_ transport.Source = (*Port)(nil)
	_ transport.Sink   = (*Port)(nil)
)

// Open opens the device described by cfg.
func Open(cfg Config) (*Port, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", cfg.Device, err)
	}
	return &Port{port: p}, nil
}

// ReadByte polls the device for one byte. A read that returns no data
// within the configured timeout reports transport.ErrWouldBlock.
func (p *Port) ReadByte() (byte, error) {
	var b [1]byte
	n, err := p.port.Read(b[:])
	if err != nil {
		// tarm reports a timed-out read as io.EOF on some platforms.
		if errors.Is(err, io.EOF) {
			return 0, transport.ErrWouldBlock
		}
		return 0, fmt.Errorf("serialport: read: %w", err)
	}
	if n == 0 {
		return 0, transport.ErrWouldBlock
	}
	return b[0], nil
}

// WriteByte writes one byte to the device. The OS write path blocks until
// the driver accepts the byte, so a would-block result never occurs here.
func (p *Port) WriteByte(b byte) error {
	if _, err := p.port.Write([]byte{b}); err != nil {
		return fmt.Errorf("serialport: write: %w", err)
	}
	return nil
}

// Flush discards driver buffers on both directions.
func (p *Port) Flush() error {
	return p.port.Flush()
}

// Close releases the device.
func (p *Port) Close() error {
	return p.port.Close()
}
