package unit

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergev/fluxweazle/frame"
)

// fakeChannel is an in-memory transport.Channel that serves a
// pre-queued byte stream in order, regardless of which command is
// asking for it. Tests build the queue to match the exact sequence of
// writes a scenario is expected to perform.
type fakeChannel struct {
	toRead []byte
}

func (f *fakeChannel) Write(p []byte) (int, error) { return len(p), nil }

func (f *fakeChannel) ReadExact(n int) ([]byte, error) {
	buf := f.toRead[:n]
	f.toRead = f.toRead[n:]
	return buf, nil
}

func (f *fakeChannel) ReadAvailable() ([]byte, error) { return nil, nil }
func (f *fakeChannel) SetBaudrate(uint32) error       { return nil }
func (f *fakeChannel) FlushInput() error              { return nil }
func (f *fakeChannel) FlushOutput() error             { return nil }

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func concat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// getInfoResponse builds the fixed 32-byte GetInfo payload.
func getInfoResponse(major, minor, maxIndex, maxCmd byte, sampleFreq uint32) []byte {
	return concat([]byte{major, minor, maxIndex, maxCmd}, le32(sampleFreq), make([]byte, 24))
}

func delaysResponse(d DelayParams) []byte {
	return d.encode()
}

var testVersion = Version{Major: 1, Minor: 0}

func newNormalSession(t *testing.T, trailing []byte) (*Session, *fakeChannel) {
	t.Helper()
	queue := concat(
		[]byte{frame.CmdGetInfo, frame.CodeOkay},
		getInfoResponse(1, 0, 79, 10, 12000000),
		[]byte{frame.CmdGetParams, frame.CodeOkay},
		delaysResponse(DelayParams{Select: 1, Step: 2, SeekSettle: 3, Motor: 4, AutoOff: 5}),
		trailing,
	)
	ch := &fakeChannel{toRead: queue}
	s, err := New(ch, testVersion, nil, nil)
	require.NoError(t, err)
	_, ok := s.Capabilities().(NormalCapabilities)
	require.True(t, ok)
	return s, ch
}

func TestNewSessionUpdateMode(t *testing.T) {
	queue := concat(
		[]byte{frame.CmdGetInfo, frame.CodeOkay},
		getInfoResponse(0, 9, 0, 0, 1), // maxIndex==0 -> update mode, sampleFreq&1 -> jumpered
	)
	ch := &fakeChannel{toRead: queue}
	s, err := New(ch, testVersion, nil, nil)
	require.NoError(t, err)

	caps, ok := s.Capabilities().(UpdateModeCapabilities)
	require.True(t, ok)
	assert.True(t, caps.UpdateJumpered)
	assert.Equal(t, Version{0, 9}, caps.Version)

	_, err = s.ReadTrack(context.Background(), 1, DefaultRetries)
	assert.ErrorIs(t, err, ErrCapabilityWithheld)
}

func TestNewSessionNeedsUpdate(t *testing.T) {
	queue := concat(
		[]byte{frame.CmdGetInfo, frame.CodeOkay},
		getInfoResponse(9, 9, 79, 10, 12000000), // version mismatch
	)
	ch := &fakeChannel{toRead: queue}
	s, err := New(ch, testVersion, nil, nil)
	require.NoError(t, err)

	caps, ok := s.Capabilities().(NeedsUpdateCapabilities)
	require.True(t, ok)
	assert.Equal(t, Version{9, 9}, caps.Version)
}

// TestReadTrackHappyPath mirrors the "happy read" scenario: nr_revs=1,
// flux bytes [100,50,200,0], index times [120,500].
func TestReadTrackHappyPath(t *testing.T) {
	trailing := concat(
		[]byte{frame.CmdReadFlux, frame.CodeOkay},
		[]byte{100, 50, 200, 0},
		[]byte{frame.CmdGetFluxStatus, frame.CodeOkay},
		[]byte{frame.CmdGetIndexTimes, frame.CodeOkay},
		le32(120), le32(500),
	)
	s, _ := newNormalSession(t, trailing)

	rec, err := s.ReadTrack(context.Background(), 1, DefaultRetries)
	require.NoError(t, err)
	assert.Equal(t, []uint32{30, 200}, rec.FluxList)
	assert.Equal(t, []uint32{500}, rec.IndexTimes)
	assert.Equal(t, uint32(12000000), rec.SampleFreq)
}

// TestReadTrackOverflowRetry mirrors the overflow-then-success scenario.
func TestReadTrackOverflowRetry(t *testing.T) {
	trailing := concat(
		[]byte{frame.CmdReadFlux, frame.CodeOkay},
		[]byte{100, 50, 200, 0},
		[]byte{frame.CmdGetFluxStatus, frame.CodeFluxOverflow},
		[]byte{frame.CmdReadFlux, frame.CodeOkay},
		[]byte{100, 50, 200, 0},
		[]byte{frame.CmdGetFluxStatus, frame.CodeOkay},
		[]byte{frame.CmdGetIndexTimes, frame.CodeOkay},
		le32(120), le32(500),
	)
	s, _ := newNormalSession(t, trailing)

	rec, err := s.ReadTrack(context.Background(), 1, DefaultRetries)
	require.NoError(t, err)
	assert.Equal(t, []uint32{30, 200}, rec.FluxList)
	assert.Equal(t, []uint32{500}, rec.IndexTimes)
}

// TestReadTrackOverflowNoRetriesPropagates mirrors nr_retries=0 raising
// immediately on the first overflow.
func TestReadTrackOverflowNoRetriesPropagates(t *testing.T) {
	trailing := concat(
		[]byte{frame.CmdReadFlux, frame.CodeOkay},
		[]byte{100, 50, 200, 0},
		[]byte{frame.CmdGetFluxStatus, frame.CodeFluxOverflow},
	)
	s, _ := newNormalSession(t, trailing)

	_, err := s.ReadTrack(context.Background(), 1, 0)
	require.Error(t, err)
	var cmdErr *frame.CmdError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, byte(frame.CodeFluxOverflow), cmdErr.Code)
}

// TestWriteTrackUnderflowRetry mirrors write_track([300]) encoding to
// [250,51,0], with the first GetFluxStatus raising underflow.
func TestWriteTrackUnderflowRetry(t *testing.T) {
	trailing := concat(
		[]byte{frame.CmdWriteFlux, frame.CodeOkay},
		[]byte{0xAA}, // sync byte, value ignored
		[]byte{frame.CmdGetFluxStatus, frame.CodeFluxUnderflow},
		[]byte{frame.CmdWriteFlux, frame.CodeOkay},
		[]byte{0xAA},
		[]byte{frame.CmdGetFluxStatus, frame.CodeOkay},
	)
	s, _ := newNormalSession(t, trailing)

	err := s.WriteTrack(context.Background(), []uint32{300}, DefaultRetries)
	require.NoError(t, err)
}

// TestWriteTrackUnderflowNoRetriesPropagates mirrors nr_retries=0 raising
// immediately on the first underflow.
func TestWriteTrackUnderflowNoRetriesPropagates(t *testing.T) {
	trailing := concat(
		[]byte{frame.CmdWriteFlux, frame.CodeOkay},
		[]byte{0xAA},
		[]byte{frame.CmdGetFluxStatus, frame.CodeFluxUnderflow},
	)
	s, _ := newNormalSession(t, trailing)

	err := s.WriteTrack(context.Background(), []uint32{300}, 0)
	require.Error(t, err)
	var cmdErr *frame.CmdError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, byte(frame.CodeFluxUnderflow), cmdErr.Code)
}

func TestWithDriveSelectedReleasesOnError(t *testing.T) {
	trailing := concat(
		[]byte{frame.CmdSelect, frame.CodeOkay},
		[]byte{frame.CmdMotor, frame.CodeOkay},
		[]byte{frame.CmdMotor, frame.CodeOkay},
		[]byte{frame.CmdSelect, frame.CodeOkay},
	)
	s, ch := newNormalSession(t, trailing)

	sentinel := assert.AnError
	err := s.WithDriveSelected(func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	// Both release acks (motor off, deselect) were consumed.
	assert.Empty(t, ch.toRead)
}

func TestDelaysRoundTrip(t *testing.T) {
	s, _ := newNormalSession(t, nil)
	d, err := s.Delays()
	require.NoError(t, err)
	assert.Equal(t, DelayParams{Select: 1, Step: 2, SeekSettle: 3, Motor: 4, AutoOff: 5}, d)
}
