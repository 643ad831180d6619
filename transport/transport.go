// Package transport defines the opaque duplex byte channel the Unit session
// is built on, plus the baud-rate-toggle reset protocol the Unit recognises
// as a resynchronisation signal. Concrete backends (serial.go, usb.go)
// satisfy the Channel interface; nothing above this package knows or cares
// which one is in use.
package transport

import "fmt"

// Baud-rate values are magic to the Unit's reset protocol and must never be
// used for data.
const (
	ClearCommsBaud uint32 = 10000
	NormalBaud     uint32 = 9600
)

// Channel is the duplex byte transport the frame layer is built on. A
// Channel performs no framing or command interpretation; it is pure
// plumbing.
type Channel interface {
	// Write sends bytes to the Unit. It returns the number of bytes
	// written and any error encountered.
	Write(p []byte) (int, error)
	// ReadExact blocks until exactly n bytes have been read, or an error
	// occurs.
	ReadExact(n int) ([]byte, error)
	// ReadAvailable returns the bytes delivered by a single read of the
	// underlying transport. It is not a nonblocking drain: the serial and
	// USB backends block until that read returns at least one byte or
	// fails.
	ReadAvailable() ([]byte, error)
	// SetBaudrate reconfigures the channel's bit rate. Backends with no
	// notion of baud rate (e.g. raw USB bulk transfer) treat this as a
	// no-op rather than an error.
	SetBaudrate(baud uint32) error
	// FlushInput discards any buffered but unread input.
	FlushInput() error
	// FlushOutput discards any buffered but unsent output.
	FlushOutput() error
}

// Reset runs the Unit's baud-rate-toggle resynchronisation sequence: flush
// output, toggle to the clear-comms baud rate, toggle back to normal, then
// flush input. No bytes are written during reset; after it returns, the
// Unit is guaranteed to be awaiting a new command frame, and any ack left
// over from an interrupted command has been discarded.
func Reset(ch Channel) error {
	if err := ch.FlushOutput(); err != nil {
		return fmt.Errorf("transport: flush output during reset: %w", err)
	}
	if err := ch.SetBaudrate(ClearCommsBaud); err != nil {
		return fmt.Errorf("transport: set clear-comms baud during reset: %w", err)
	}
	if err := ch.SetBaudrate(NormalBaud); err != nil {
		return fmt.Errorf("transport: restore normal baud during reset: %w", err)
	}
	if err := ch.FlushInput(); err != nil {
		return fmt.Errorf("transport: flush input during reset: %w", err)
	}
	return nil
}
