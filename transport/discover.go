package transport

import (
	"fmt"
	"strconv"

	"go.bug.st/serial/enumerator"
)

// FindSerialPort scans the system's serial ports for one matching
// vendorID/productID and returns its OS device name (e.g. "/dev/ttyACM0").
// It returns an error if no matching port is attached.
func FindSerialPort(vendorID, productID uint16) (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("transport: list serial ports: %w", err)
	}

	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		portVID, err := strconv.ParseUint(port.VID, 16, 16)
		if err != nil {
			continue
		}
		portPID, err := strconv.ParseUint(port.PID, 16, 16)
		if err != nil {
			continue
		}
		if uint16(portVID) == vendorID && uint16(portPID) == productID {
			return port.Name, nil
		}
	}

	return "", fmt.Errorf("transport: no serial port found for VID=0x%04X PID=0x%04X", vendorID, productID)
}
