// Package frame implements the Unit's length-prefixed command/acknowledgement
// protocol: every command is a byte sequence beginning with a command id and
// a total frame length, and every command is answered by a fixed two-byte
// acknowledgement (echoed command id, status code).
package frame

import (
	"errors"
	"fmt"

	"github.com/sergev/fluxweazle/transport"
)

// Command ids. Update shares id 1 with Seek, but the two are never valid in
// the same session: Update is only issued while the session is in update
// mode or needs a firmware update, at which point Seek (and everything else
// but GetInfo) is withheld.
const (
	CmdGetInfo       = 0
	CmdSeek          = 1
	CmdSide          = 2
	CmdSetParams     = 3
	CmdGetParams     = 4
	CmdMotor         = 5
	CmdReadFlux      = 6
	CmdWriteFlux     = 7
	CmdGetFluxStatus = 8
	CmdGetIndexTimes = 9
	CmdSelect        = 10
	CmdUpdate        = 1 // bootloader mode only
)

// Ack status codes reported by the Unit.
const (
	CodeOkay           = 0
	CodeBadCommand     = 1
	CodeNoIndex        = 2
	CodeNoTrack0       = 3
	CodeFluxOverflow   = 4
	CodeFluxUnderflow  = 5
	CodeWriteProtected = 6
	codeMax            = CodeWriteProtected
)

var codeNames = [...]string{
	CodeOkay:           "Okay",
	CodeBadCommand:     "Bad Command",
	CodeNoIndex:        "No Index",
	CodeNoTrack0:       "Track 0 not found",
	CodeFluxOverflow:   "Flux Overflow",
	CodeFluxUnderflow:  "Flux Underflow",
	CodeWriteProtected: "Write Protected",
}

// ErrEchoMismatch is a fatal protocol violation: the acknowledgement's
// echoed command id did not match the command that was sent.
var ErrEchoMismatch = errors.New("frame: acknowledgement echoed the wrong command id")

// CmdError reports a non-zero status code returned by the Unit for a given
// command. Codes 4 (Flux Overflow) and 5 (Flux Underflow) are the only
// ones treated as transient by the read/write pipelines; every other code
// is fatal to the operation that triggered it.
type CmdError struct {
	Cmd  byte
	Code byte
}

func (e *CmdError) Error() string {
	if e.Code <= codeMax {
		return fmt.Sprintf("frame: command 0x%02x: %s", e.Cmd, codeNames[e.Code])
	}
	return fmt.Sprintf("frame: command 0x%02x: Unknown Error (%d)", e.Cmd, e.Code)
}

// Transient reports whether this error should be retried by the enclosing
// read_track/write_track pipeline: Flux Overflow and Flux Underflow only.
func (e *CmdError) Transient() bool {
	return e.Code == CodeFluxOverflow || e.Code == CodeFluxUnderflow
}

// Send writes a fully-built command frame to ch and reads back the
// standard two-byte acknowledgement. It returns ErrEchoMismatch if the
// acknowledgement's command byte doesn't match cmd[0], or a *CmdError if
// the Unit reported a non-zero status.
func Send(ch transport.Channel, cmd []byte) error {
	if _, err := ch.Write(cmd); err != nil {
		return fmt.Errorf("frame: write command 0x%02x: %w", cmd[0], err)
	}
	ack, err := ch.ReadExact(2)
	if err != nil {
		return fmt.Errorf("frame: read ack for command 0x%02x: %w", cmd[0], err)
	}
	if ack[0] != cmd[0] {
		return fmt.Errorf("%w: sent 0x%02x, got 0x%02x (status 0x%02x)", ErrEchoMismatch, cmd[0], ack[0], ack[1])
	}
	if ack[1] != CodeOkay {
		return &CmdError{Cmd: ack[0], Code: ack[1]}
	}
	return nil
}
