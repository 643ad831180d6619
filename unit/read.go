package unit

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sergev/fluxweazle/codec"
	"github.com/sergev/fluxweazle/flux"
	"github.com/sergev/fluxweazle/frame"
	"github.com/sergev/fluxweazle/transport"
)

// DefaultRetries is the retry ceiling used by ReadTrack and WriteTrack
// when a caller does not need a different value.
const DefaultRetries = 5

// ReadTrack captures nrRevs whole revolutions of flux from the currently
// seeked track, retrying on Flux Overflow up to nrRetries times. It
// requests nrRevs+1 revolutions from the Unit and discards the leading
// partial one via the capture reconciler.
func (s *Session) ReadTrack(ctx context.Context, nrRevs int, nrRetries int) (*flux.Record, error) {
	caps, err := s.requireNormal()
	if err != nil {
		return nil, err
	}

	var buf []byte
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, s.abortOnCancel(err)
		}

		if err := frame.Send(s.ch, []byte{frame.CmdReadFlux, 3, byte(nrRevs + 1)}); err != nil {
			return nil, fmt.Errorf("unit: read_track: issue ReadFlux: %w", err)
		}

		buf, err = s.readUntilSentinel(ctx)
		if err != nil {
			return nil, fmt.Errorf("unit: read_track: stream flux: %w", err)
		}

		statusErr := frame.Send(s.ch, []byte{frame.CmdGetFluxStatus, 2})
		if statusErr == nil {
			break
		}
		var cmdErr *frame.CmdError
		if errors.As(statusErr, &cmdErr) && cmdErr.Code == frame.CodeFluxOverflow && attempt < nrRetries {
			s.log.Warn("read_track retrying", "attempt", attempt+1, "code", cmdErr.Code)
			continue
		}
		return nil, fmt.Errorf("unit: read_track: GetFluxStatus: %w", statusErr)
	}

	fluxList, err := codec.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("unit: read_track: decode flux buffer: %w", err)
	}

	nr := nrRevs + 1
	indexCmdLen := byte(4)
	if err := frame.Send(s.ch, []byte{frame.CmdGetIndexTimes, indexCmdLen, 0, byte(nr)}); err != nil {
		return nil, fmt.Errorf("unit: read_track: issue GetIndexTimes: %w", err)
	}
	indexBuf, err := s.ch.ReadExact(4 * nr)
	if err != nil {
		return nil, fmt.Errorf("unit: read_track: read index times: %w", err)
	}
	indexList := make([]uint32, nr)
	for i := range indexList {
		indexList[i] = binary.LittleEndian.Uint32(indexBuf[4*i : 4*i+4])
	}

	outFlux, outIndex := flux.Reconcile(fluxList, indexList)
	return &flux.Record{
		IndexTimes: outIndex,
		FluxList:   outFlux,
		SampleFreq: caps.SampleFreq,
	}, nil
}

// readUntilSentinel reads bytes one at a time until it observes the
// codec's terminating zero, honoring ctx between each byte.
func (s *Session) readUntilSentinel(ctx context.Context) ([]byte, error) {
	var buf []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, s.abortOnCancel(err)
		}
		b, err := s.ch.ReadExact(1)
		if err != nil {
			return nil, err
		}
		buf = append(buf, b[0])
		if b[0] == 0 {
			return buf, nil
		}
	}
}

// abortOnCancel resets the channel, then deasserts motor and select,
// before handing back err.
func (s *Session) abortOnCancel(err error) error {
	if rerr := transport.Reset(s.ch); rerr != nil {
		s.log.Error("reset during cancellation recovery failed", "error", rerr)
	}
	_ = s.DriveMotor(false)
	_ = s.DriveSelect(false)
	return err
}
