package unit

import (
	"encoding/binary"
	"fmt"

	"github.com/sergev/fluxweazle/frame"
)

// cmdUpdateFrameLen is the fixed frame length of the bootloader Update
// command: one cmd byte, one length byte, four length-prefix bytes.
const cmdUpdateFrameLen = 6

// UpdateFirmware streams data to the Unit's bootloader and returns its
// single-byte ack unchanged. It is only valid while the session reports
// UpdateModeCapabilities or NeedsUpdateCapabilities; calling it with
// NormalCapabilities returns ErrCapabilityWithheld.
func (s *Session) UpdateFirmware(data []byte) (byte, error) {
	switch s.caps.(type) {
	case UpdateModeCapabilities, NeedsUpdateCapabilities:
	default:
		return 0, fmt.Errorf("%w: update_firmware requires update mode, have %T", ErrCapabilityWithheld, s.caps)
	}

	lenPrefix := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenPrefix, uint32(len(data)))
	cmd := append([]byte{frame.CmdUpdate, cmdUpdateFrameLen}, lenPrefix...)

	if _, err := s.ch.Write(cmd); err != nil {
		return 0, fmt.Errorf("unit: update_firmware: write command header: %w", err)
	}
	if _, err := s.ch.Write(data); err != nil {
		return 0, fmt.Errorf("unit: update_firmware: stream firmware data: %w", err)
	}
	ack, err := s.ch.ReadExact(1)
	if err != nil {
		return 0, fmt.Errorf("unit: update_firmware: read ack: %w", err)
	}
	s.log.Info("firmware update streamed", "bytes", len(data), "ack", ack[0])
	return ack[0], nil
}
