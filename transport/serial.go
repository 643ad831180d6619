package transport

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// SerialChannel implements Channel over a CDC-ACM serial port, the way the
// Unit normally enumerates to the host.
type SerialChannel struct {
	port serial.Port
}

// OpenSerial opens the named serial port at the Unit's normal operating
// baud rate and wraps it as a Channel.
func OpenSerial(portName string) (*SerialChannel, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: int(NormalBaud)})
	if err != nil {
		return nil, fmt.Errorf("transport: open serial port %s: %w", portName, err)
	}
	return &SerialChannel{port: port}, nil
}

func (c *SerialChannel) Write(p []byte) (int, error) {
	n, err := c.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: serial write: %w", err)
	}
	return n, nil
}

func (c *SerialChannel) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.port, buf); err != nil {
		return nil, fmt.Errorf("transport: serial read %d bytes: %w", n, err)
	}
	return buf, nil
}

func (c *SerialChannel) ReadAvailable() ([]byte, error) {
	// go.bug.st/serial has no in-waiting counter, and the port is opened
	// without a read timeout, so this single read blocks until at least
	// one byte arrives; it returns whatever that read delivers.
	buf := make([]byte, 256)
	n, err := c.port.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("transport: serial drain: %w", err)
	}
	return buf[:n], nil
}

func (c *SerialChannel) SetBaudrate(baud uint32) error {
	if err := c.port.SetMode(&serial.Mode{BaudRate: int(baud)}); err != nil {
		return fmt.Errorf("transport: set baud rate %d: %w", baud, err)
	}
	return nil
}

func (c *SerialChannel) FlushInput() error {
	if err := c.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("transport: flush serial input buffer: %w", err)
	}
	return nil
}

func (c *SerialChannel) FlushOutput() error {
	if err := c.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("transport: flush serial output buffer: %w", err)
	}
	return nil
}

// Close closes the underlying serial port.
func (c *SerialChannel) Close() error {
	return c.port.Close()
}
