package unit

import (
	"context"
	"errors"
	"fmt"

	"github.com/sergev/fluxweazle/codec"
	"github.com/sergev/fluxweazle/frame"
)

// WriteTrack encodes fluxList and streams it to the currently seeked
// track, retrying on Flux Underflow up to nrRetries times. The already
// encoded buffer is reused across retries; only the transport exchange
// repeats.
func (s *Session) WriteTrack(ctx context.Context, fluxList []uint32, nrRetries int) error {
	if _, err := s.requireNormal(); err != nil {
		return err
	}

	dat, err := codec.Encode(fluxList)
	if err != nil {
		return fmt.Errorf("unit: write_track: encode flux: %w", err)
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return s.abortOnCancel(err)
		}

		if err := frame.Send(s.ch, []byte{frame.CmdWriteFlux, 7, 0, 0, 0, 0, 1}); err != nil {
			return fmt.Errorf("unit: write_track: issue WriteFlux: %w", err)
		}
		if _, err := s.ch.Write(dat); err != nil {
			return fmt.Errorf("unit: write_track: stream flux data: %w", err)
		}
		if _, err := s.ch.ReadExact(1); err != nil {
			return fmt.Errorf("unit: write_track: read sync byte: %w", err)
		}

		statusErr := frame.Send(s.ch, []byte{frame.CmdGetFluxStatus, 2})
		if statusErr == nil {
			return nil
		}
		var cmdErr *frame.CmdError
		if errors.As(statusErr, &cmdErr) && cmdErr.Code == frame.CodeFluxUnderflow && attempt < nrRetries {
			s.log.Warn("write_track retrying", "attempt", attempt+1, "code", cmdErr.Code)
			continue
		}
		return fmt.Errorf("unit: write_track: GetFluxStatus: %w", statusErr)
	}
}
