package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/linkctl/internal/codec"
	"github.com/danmuck/linkctl/internal/link"
	"github.com/danmuck/linkctl/internal/logging"
	"github.com/danmuck/linkctl/internal/observability"
	"github.com/danmuck/linkctl/internal/protocol/frame"
	"github.com/danmuck/linkctl/internal/protocol/packet"
	"github.com/danmuck/linkctl/internal/transport"
	"github.com/danmuck/linkctl/internal/transport/serialport"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type envelope struct {
	Run     string `json:"run" cbor:"1,keyasint"`
	Message string `json:"message" cbor:"2,keyasint"`
}

func main() {
	mode := flag.String("mode", "loopback", "mode: send | listen | loopback")
	configPath := flag.String("config", "", "path to a TOML link config")
	device := flag.String("device", "", "serial device, overrides config")
	message := flag.String("message", "hello over the wire", "payload for send and loopback modes")
	flag.Parse()

	logging.ConfigureRuntime()
	observability.InitLogger("linkctl")

	cfg := defaultRunConfig()
	if *configPath != "" {
		loaded, err := loadRunConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load link config")
		}
		cfg = loaded
		log.Info().Str("path", *configPath).Msg("loaded link config")
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if cfg.MetricsAddr != "" {
		observability.ServeMetrics(cfg.MetricsAddr)
	}

	c, err := codec.NewRegistry().Get(cfg.Format)
	if err != nil {
		log.Fatal().Err(err).Msg("unknown payload format")
	}

	switch *mode {
	case "send":
		err = runSend(cfg, c, *message)
	case "listen":
		err = runListen(cfg, c)
	case "loopback":
		err = runLoopback(cfg, c, *message)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", *mode).Msg("linkctl stopped")
	}
}

// runSend marshals one envelope and pushes it through the serial device,
// blocking until the peer has acked every chunk.
func runSend(cfg runConfig, c codec.Codec, message string) error {
	port, err := serialport.Open(cfg.Serial)
	if err != nil {
		return err
	}
	defer port.Close()

	payload, err := c.Marshal(envelope{Run: uuid.NewString(), Message: message})
	if err != nil {
		return err
	}

	conn := link.New(port, port)
	if err := conn.Send(payload, cfg.Conversation); err != nil {
		return err
	}
	log.Info().Int("bytes", len(payload)).Uint8("conversation", cfg.Conversation).Msg("payload delivered")
	return nil
}

// runListen acks inbound chunks forever, logging each assembled envelope.
func runListen(cfg runConfig, c codec.Codec) error {
	port, err := serialport.Open(cfg.Serial)
	if err != nil {
		return err
	}
	defer port.Close()

	conn := link.New(port, port)
	buf := make([]byte, 64*packet.MaxData)
	for {
		n, conversation, err := conn.Receive(buf)
		if err != nil {
			return err
		}
		var env envelope
		if err := c.Unmarshal(buf[:n], &env); err != nil {
			log.Warn().Err(err).Int("bytes", n).Msg("undecodable payload")
			continue
		}
		log.Info().
			Uint8("conversation", conversation).
			Str("run", env.Run).
			Str("message", env.Message).
			Msg("payload received")
	}
}

// runLoopback exercises the framing layer without hardware: chunks flow
// through an in-memory duplex pair, one frame per chunk, no acks.
func runLoopback(cfg runConfig, c codec.Codec, message string) error {
	a, b := transport.Duplex(16 * frame.MaxSize)
	sender := link.NewTransceiver(a, a)
	receiver := link.NewTransceiver(b, b)

	payload, err := c.Marshal(envelope{Run: uuid.NewString(), Message: message})
	if err != nil {
		return err
	}

	for _, p := range packet.Split(payload, cfg.Conversation) {
		wire := make([]byte, p.Size())
		if _, err := p.Encode(wire); err != nil {
			return err
		}
		if err := sender.SendFrame(wire); err != nil {
			return err
		}
	}
	if err := sender.Flush(); err != nil {
		return err
	}

	var assembled []byte
	for {
		f, err := receiver.RecvFrame()
		if errors.Is(err, transport.ErrWouldBlock) {
			break
		}
		if err != nil {
			return err
		}
		p, err := packet.Decode(f.Payload)
		if err != nil {
			return err
		}
		assembled = append(assembled, p.Data...)
	}

	var env envelope
	if err := c.Unmarshal(assembled, &env); err != nil {
		return fmt.Errorf("loopback payload corrupted: %w", err)
	}
	fmt.Fprintf(os.Stdout, "loopback ok: run=%s message=%q (%d bytes as %s)\n",
		env.Run, env.Message, len(payload), c.Name())
	return nil
}
