// Package serial is the status-line transport cmd/plasmacored opens on
// the host build — per the external interfaces section, the Serial
// collaborator is not required for motion/torch correctness, only for
// printable diagnostics (position, feed-hold state, torch sequence
// progress) surfaced to whatever front-end is attached.
package serial

import (
	"io"
)

// Port is a serial port abstraction, letting the host build swap the
// native (tarm/serial) implementation for a mock in tests without either
// side depending on cgo or a real device.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3").
	Device string

	// Baud rate. USB CDC devices ignore this but a real UART needs it.
	Baud int

	// Read timeout in milliseconds (0 = blocking).
	ReadTimeout int
}

// DefaultConfig returns a default configuration for a USB-CDC status
// link.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
