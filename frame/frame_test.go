package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel is an in-memory transport.Channel for exercising Send
// without a real device.
type fakeChannel struct {
	written [][]byte
	toRead  []byte
}

func (f *fakeChannel) Write(p []byte) (int, error) {
	cp := append([]byte(nil), p...)
	f.written = append(f.written, cp)
	return len(p), nil
}

func (f *fakeChannel) ReadExact(n int) ([]byte, error) {
	buf := f.toRead[:n]
	f.toRead = f.toRead[n:]
	return buf, nil
}

func (f *fakeChannel) ReadAvailable() ([]byte, error) { return nil, nil }
func (f *fakeChannel) SetBaudrate(uint32) error       { return nil }
func (f *fakeChannel) FlushInput() error              { return nil }
func (f *fakeChannel) FlushOutput() error             { return nil }

func TestSendOkay(t *testing.T) {
	ch := &fakeChannel{toRead: []byte{CmdSeek, CodeOkay}}
	err := Send(ch, []byte{CmdSeek, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{CmdSeek, 3, 5}}, ch.written)
}

func TestSendEchoMismatch(t *testing.T) {
	ch := &fakeChannel{toRead: []byte{CmdMotor, CodeOkay}}
	err := Send(ch, []byte{CmdSeek, 3, 5})
	assert.ErrorIs(t, err, ErrEchoMismatch)
}

func TestSendCmdError(t *testing.T) {
	ch := &fakeChannel{toRead: []byte{CmdReadFlux, CodeFluxOverflow}}
	err := Send(ch, []byte{CmdReadFlux, 3, 2})
	require.Error(t, err)
	var cmdErr *CmdError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, byte(CodeFluxOverflow), cmdErr.Code)
	assert.True(t, cmdErr.Transient())
}

func TestCmdErrorUnknownCode(t *testing.T) {
	err := &CmdError{Cmd: CmdSeek, Code: 42}
	assert.Contains(t, err.Error(), "Unknown Error (42)")
	assert.False(t, err.Transient())
}

func TestCmdErrorKnownCodes(t *testing.T) {
	for code, name := range codeNames {
		if code == CodeOkay {
			continue
		}
		err := &CmdError{Cmd: CmdGetInfo, Code: byte(code)}
		assert.Contains(t, err.Error(), name)
	}
}
