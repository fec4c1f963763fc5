//go:build !wasm

package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// statusPort is the tarm/serial-backed status-line link opened by
// cmd/plasmacored: one direction carries position/feed-hold/torch-sequence
// text, the other accepts nothing the motion core currently acts on.
type statusPort struct {
	port *serial.Port
}

// Open opens the status-line serial device described by cfg.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("serial: config cannot be nil")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}

	return &statusPort{port: port}, nil
}

func (p *statusPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *statusPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *statusPort) Close() error {
	if p.port == nil {
		return nil
	}
	return p.port.Close()
}

// Flush is a no-op: tarm/serial has no buffered writes to force out, and
// the status link never needs to drain a read buffer.
func (p *statusPort) Flush() error {
	return nil
}
