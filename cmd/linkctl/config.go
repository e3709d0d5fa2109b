package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/linkctl/internal/transport/serialport"
)

type runConfig struct {
	Serial       serialport.Config
	Format       string
	Conversation uint8
	MetricsAddr  string
}

func defaultRunConfig() runConfig {
	return runConfig{
		Serial:       serialport.DefaultConfig("/dev/ttyACM0"),
		Format:       "cbor",
		Conversation: 1,
	}
}

type fileConfig struct {
	Device        string `toml:"device"`
	Baud          int    `toml:"baud"`
	ReadTimeout   string `toml:"read_timeout"`
	ReadTimeoutMS int64  `toml:"read_timeout_ms"`
	Format        string `toml:"format"`
	Conversation  int    `toml:"conversation"`
	MetricsAddr   string `toml:"metrics_addr"`
}

func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runConfig{}, fmt.Errorf("load link config: %w", err)
	}

	if meta.IsDefined("device") {
		device := strings.TrimSpace(raw.Device)
		if device != "" {
			cfg.Serial.Device = device
		}
	}

	if meta.IsDefined("baud") {
		if raw.Baud <= 0 {
			return runConfig{}, fmt.Errorf("parse baud: must be positive, got %d", raw.Baud)
		}
		cfg.Serial.Baud = raw.Baud
	}

	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return runConfig{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.Serial.ReadTimeout = d
	}

	if meta.IsDefined("read_timeout_ms") {
		cfg.Serial.ReadTimeout = time.Duration(raw.ReadTimeoutMS) * time.Millisecond
	}

	if meta.IsDefined("format") {
		cfg.Format = strings.TrimSpace(raw.Format)
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("conversation") {
		if raw.Conversation < 0 || raw.Conversation > 255 {
			return runConfig{}, fmt.Errorf("parse conversation: must fit a byte, got %d", raw.Conversation)
		}
		cfg.Conversation = uint8(raw.Conversation)
	}

	return cfg, nil
}
