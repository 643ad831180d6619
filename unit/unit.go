// Package unit implements the Unit session: the capability-negotiated
// handle through which a host drives a connected floppy drive, reads and
// writes flux, and updates the Unit's own firmware. A session is
// single-threaded and synchronous: every operation is a strict
// request/response against the shared Channel it was constructed with.
package unit

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/sergev/fluxweazle/frame"
	"github.com/sergev/fluxweazle/transport"
)

// getInfoResponseLen is the fixed size of the GetInfo response: four
// version/limit bytes, a little-endian sample_freq, and 24 reserved bytes.
const getInfoResponseLen = 32

// Session is the host-side handle to a connected Unit. It owns the
// channel exclusively: two sessions must never be open concurrently
// against the same device.
type Session struct {
	ch   transport.Channel
	caps Capabilities

	// delays mirrors the last-written delay tuple. It is only meaningful
	// when caps is NormalCapabilities; the session never reads delays
	// back from the device after negotiation.
	delays DelayParams

	log *slog.Logger
}

// New attaches to ch, performs the reset protocol, and negotiates
// capabilities against expectedVersion. logger may be nil, in which case
// session events are discarded. If profile is non-nil and the session
// negotiates normal capabilities, it is committed as the initial delay
// tuple, superseding the values read back from the Unit.
func New(ch transport.Channel, expectedVersion Version, profile *DelayParams, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{ch: ch, log: logger}

	if err := transport.Reset(ch); err != nil {
		return nil, fmt.Errorf("unit: reset during session construction: %w", err)
	}

	info, err := s.getInfo()
	if err != nil {
		return nil, fmt.Errorf("unit: get info during session construction: %w", err)
	}

	version := Version{Major: info.major, Minor: info.minor}
	if info.maxIndex == 0 {
		s.caps = UpdateModeCapabilities{
			Version:        version,
			UpdateJumpered: info.sampleFreq&1 != 0,
		}
		s.log.Info("unit in update mode", "version", version, "jumpered", info.sampleFreq&1 != 0)
		return s, nil
	}

	if version != expectedVersion {
		s.caps = NeedsUpdateCapabilities{Version: version}
		s.log.Warn("unit firmware needs update", "have", version, "want", expectedVersion)
		return s, nil
	}

	delays, err := s.getDelays()
	if err != nil {
		return nil, fmt.Errorf("unit: get delay params during session construction: %w", err)
	}
	s.delays = delays
	s.caps = NormalCapabilities{
		Version:    version,
		MaxIndex:   info.maxIndex,
		MaxCmd:     info.maxCmd,
		SampleFreq: info.sampleFreq,
	}

	if profile != nil {
		if err := s.setDelays(*profile); err != nil {
			return nil, fmt.Errorf("unit: apply delay profile during session construction: %w", err)
		}
		s.log.Debug("delay profile applied", "profile", *profile)
	}

	s.log.Debug("unit ready", "version", version, "sample_freq", info.sampleFreq, "max_cmd", info.maxCmd)
	return s, nil
}

// Capabilities returns the session's negotiated capability variant.
func (s *Session) Capabilities() Capabilities {
	return s.caps
}

type getInfoResult struct {
	major, minor, maxIndex, maxCmd uint8
	sampleFreq                     uint32
}

func (s *Session) getInfo() (getInfoResult, error) {
	if err := frame.Send(s.ch, []byte{frame.CmdGetInfo, 3, 0}); err != nil {
		return getInfoResult{}, err
	}
	resp, err := s.ch.ReadExact(getInfoResponseLen)
	if err != nil {
		return getInfoResult{}, fmt.Errorf("read GetInfo response: %w", err)
	}
	return getInfoResult{
		major:      resp[0],
		minor:      resp[1],
		maxIndex:   resp[2],
		maxCmd:     resp[3],
		sampleFreq: binary.LittleEndian.Uint32(resp[4:8]),
	}, nil
}

// requireNormal returns the session's NormalCapabilities, or
// ErrCapabilityWithheld if the session is in update mode or needs a
// firmware update.
func (s *Session) requireNormal() (NormalCapabilities, error) {
	n, ok := s.caps.(NormalCapabilities)
	if !ok {
		return NormalCapabilities{}, fmt.Errorf("%w: requires normal capabilities, have %T", ErrCapabilityWithheld, s.caps)
	}
	return n, nil
}

// Seek moves the selected drive's head to cylinder cyl and selects side.
func (s *Session) Seek(cyl, side byte) error {
	if _, err := s.requireNormal(); err != nil {
		return err
	}
	if err := frame.Send(s.ch, []byte{frame.CmdSeek, 3, cyl}); err != nil {
		return fmt.Errorf("unit: seek to cylinder %d: %w", cyl, err)
	}
	if err := frame.Send(s.ch, []byte{frame.CmdSide, 3, side}); err != nil {
		return fmt.Errorf("unit: select side %d: %w", side, err)
	}
	return nil
}

// DriveSelect asserts or deasserts drive select.
func (s *Session) DriveSelect(on bool) error {
	if _, err := s.requireNormal(); err != nil {
		return err
	}
	if err := frame.Send(s.ch, []byte{frame.CmdSelect, 3, boolByte(on)}); err != nil {
		return fmt.Errorf("unit: drive select %v: %w", on, err)
	}
	return nil
}

// DriveMotor turns the selected drive's spindle motor on or off.
func (s *Session) DriveMotor(on bool) error {
	if _, err := s.requireNormal(); err != nil {
		return err
	}
	if err := frame.Send(s.ch, []byte{frame.CmdMotor, 3, boolByte(on)}); err != nil {
		return fmt.Errorf("unit: drive motor %v: %w", on, err)
	}
	return nil
}

// WithDriveSelected is the scoped-acquisition helper: it asserts select
// then motor, runs fn, and on every exit path (normal return, error, or
// panic) releases motor then select before returning. It does not
// swallow fn's error; the release sequence always runs, and the error (if
// any) from fn is returned as is. A release error is returned only when fn
// succeeded.
func (s *Session) WithDriveSelected(fn func() error) (err error) {
	if e := s.DriveSelect(true); e != nil {
		return fmt.Errorf("unit: scoped select: %w", e)
	}
	if e := s.DriveMotor(true); e != nil {
		_ = s.DriveSelect(false)
		return fmt.Errorf("unit: scoped motor on: %w", e)
	}

	defer func() {
		motorErr := s.DriveMotor(false)
		selectErr := s.DriveSelect(false)
		switch {
		case err != nil:
			// fn's error takes priority; release is still attempted
			// but its errors are not reported over it.
		case motorErr != nil:
			err = fmt.Errorf("unit: scoped motor off: %w", motorErr)
		case selectErr != nil:
			err = fmt.Errorf("unit: scoped deselect: %w", selectErr)
		}
	}()

	err = fn()
	return err
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
