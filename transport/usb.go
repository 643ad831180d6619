package transport

import (
	"fmt"
	"time"

	"github.com/google/gousb"
)

// Default USB endpoint addresses for the Unit when it enumerates as a
// vendor-specific bulk device rather than CDC-ACM serial.
const (
	usbEndpointOut = 0x01
	usbEndpointIn  = 0x81

	// interCommandDelay substitutes for the serial backend's baud-rate
	// toggle: raw USB bulk transfer has no baud-rate concept for the
	// Unit's magic resync signal to ride on, so the USB backend instead
	// gives the Unit's firmware a short quiet window to notice the host
	// has gone idle and rearm for a fresh command frame.
	interCommandDelay = 50 * time.Millisecond
)

// USBChannel implements Channel over a direct (non-serial) USB bulk
// endpoint pair, for Units that enumerate as a vendor-specific USB device
// instead of a CDC-ACM serial port.
type USBChannel struct {
	ctx    *gousb.Context
	device *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	epOut  *gousb.OutEndpoint
	epIn   *gousb.InEndpoint
}

// OpenUSB opens the Unit by vendor/product ID, claims its first interface,
// and wraps the bulk in/out endpoint pair as a Channel.
func OpenUSB(vendorID, productID uint16) (*USBChannel, error) {
	ctx := gousb.NewContext()

	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vendorID), gousb.ID(productID))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("transport: open USB device %04x:%04x: %w", vendorID, productID, err)
	}
	if device == nil {
		ctx.Close()
		return nil, fmt.Errorf("transport: USB device %04x:%04x not found", vendorID, productID)
	}

	config, err := device.Config(1)
	if err != nil {
		device.Close()
		ctx.Close()
		return nil, fmt.Errorf("transport: set USB configuration: %w", err)
	}

	intf, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		device.Close()
		ctx.Close()
		return nil, fmt.Errorf("transport: claim USB interface: %w", err)
	}

	epOut, err := intf.OutEndpoint(usbEndpointOut)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		ctx.Close()
		return nil, fmt.Errorf("transport: open USB OUT endpoint: %w", err)
	}

	epIn, err := intf.InEndpoint(usbEndpointIn)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		ctx.Close()
		return nil, fmt.Errorf("transport: open USB IN endpoint: %w", err)
	}

	return &USBChannel{
		ctx:    ctx,
		device: device,
		config: config,
		intf:   intf,
		epOut:  epOut,
		epIn:   epIn,
	}, nil
}

func (c *USBChannel) Write(p []byte) (int, error) {
	n, err := c.epOut.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: USB bulk write: %w", err)
	}
	return n, nil
}

func (c *USBChannel) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := c.epIn.Read(buf[got:])
		if err != nil {
			return nil, fmt.Errorf("transport: USB bulk read: %w", err)
		}
		got += m
	}
	return buf, nil
}

func (c *USBChannel) ReadAvailable() ([]byte, error) {
	buf := make([]byte, 512)
	n, err := c.epIn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("transport: USB bulk drain: %w", err)
	}
	return buf[:n], nil
}

// SetBaudrate is a deliberate no-op: raw USB bulk transfer has no baud-rate
// concept, so the Unit's magic-toggle resync signal has nothing to ride on
// over this backend (see interCommandDelay).
func (c *USBChannel) SetBaudrate(baud uint32) error {
	return nil
}

// FlushInput gives the Unit's firmware the quiet window it needs to notice
// the host has gone idle, in place of the serial backend's input-buffer
// reset.
func (c *USBChannel) FlushInput() error {
	time.Sleep(interCommandDelay)
	return nil
}

// FlushOutput is a no-op: bulk OUT transfers are not host-buffered the way
// a serial output buffer is.
func (c *USBChannel) FlushOutput() error {
	return nil
}

// Close releases the USB interface, configuration, device handle, and
// context, in that order.
func (c *USBChannel) Close() error {
	c.intf.Close()
	if err := c.config.Close(); err != nil {
		return fmt.Errorf("transport: close USB configuration: %w", err)
	}
	if err := c.device.Close(); err != nil {
		return fmt.Errorf("transport: close USB device: %w", err)
	}
	return c.ctx.Close()
}
