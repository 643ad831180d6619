package unit

import (
	"encoding/binary"
	"fmt"

	"github.com/sergev/fluxweazle/frame"
)

// paramsSelectDelays is the GetParams/SetParams selector byte for the
// delays block; it is the only selector this module issues.
const paramsSelectDelays = 0

// delaysWireLen is the length, in bytes, of the five little-endian u16
// delay values on the wire.
const delaysWireLen = 10

// DelayParams is the Unit's five-tuple of drive timing delays: Select and
// Step in microseconds, SeekSettle, Motor and AutoOff in milliseconds.
// SetDelays commits the complete tuple in one SetParams call; there is no
// way to write a single field independently on the wire.
type DelayParams struct {
	Select     uint16
	Step       uint16
	SeekSettle uint16
	Motor      uint16
	AutoOff    uint16
}

func decodeDelayParams(b []byte) DelayParams {
	return DelayParams{
		Select:     binary.LittleEndian.Uint16(b[0:2]),
		Step:       binary.LittleEndian.Uint16(b[2:4]),
		SeekSettle: binary.LittleEndian.Uint16(b[4:6]),
		Motor:      binary.LittleEndian.Uint16(b[6:8]),
		AutoOff:    binary.LittleEndian.Uint16(b[8:10]),
	}
}

func (d DelayParams) encode() []byte {
	b := make([]byte, delaysWireLen)
	binary.LittleEndian.PutUint16(b[0:2], d.Select)
	binary.LittleEndian.PutUint16(b[2:4], d.Step)
	binary.LittleEndian.PutUint16(b[4:6], d.SeekSettle)
	binary.LittleEndian.PutUint16(b[6:8], d.Motor)
	binary.LittleEndian.PutUint16(b[8:10], d.AutoOff)
	return b
}

// getDelays issues GetParams for the delays block and decodes the
// response. It does not touch s.delays; callers assign the result.
func (s *Session) getDelays() (DelayParams, error) {
	if err := frame.Send(s.ch, []byte{frame.CmdGetParams, 4, paramsSelectDelays, delaysWireLen}); err != nil {
		return DelayParams{}, err
	}
	resp, err := s.ch.ReadExact(delaysWireLen)
	if err != nil {
		return DelayParams{}, fmt.Errorf("read GetParams delays response: %w", err)
	}
	return decodeDelayParams(resp), nil
}

// setDelays commits d as the Unit's complete delay tuple via one
// SetParams call.
func (s *Session) setDelays(d DelayParams) error {
	payload := d.encode()
	frameLen := byte(2 + 1 + len(payload))
	cmd := append([]byte{frame.CmdSetParams, frameLen, paramsSelectDelays}, payload...)
	if err := frame.Send(s.ch, cmd); err != nil {
		return fmt.Errorf("unit: set delay params: %w", err)
	}
	s.delays = d
	return nil
}

// Delays returns the session's last-committed delay tuple. In normal
// mode this is the value negotiated at construction, possibly overridden
// by an applied DelayProfile or a subsequent SetDelays call.
func (s *Session) Delays() (DelayParams, error) {
	if _, err := s.requireNormal(); err != nil {
		return DelayParams{}, err
	}
	return s.delays, nil
}

// SetDelays revalidates and commits a new complete delay tuple,
// superseding whatever the Unit reported at construction.
func (s *Session) SetDelays(d DelayParams) error {
	if _, err := s.requireNormal(); err != nil {
		return err
	}
	return s.setDelays(d)
}

// ApplyDelayProfile commits p as the session's delay tuple. It is meant
// to be called once, immediately after construction, from a host-supplied
// configuration profile; calling it later has the same effect as
// SetDelays.
func (s *Session) ApplyDelayProfile(p DelayParams) error {
	return s.SetDelays(p)
}
