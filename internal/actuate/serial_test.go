package actuate

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort replays canned replies and records written commands
type fakePort struct {
	replies bytes.Buffer
	written bytes.Buffer
	// simulate go.bug.st/serial timeout once replies are drained
	timeoutOnEmpty bool
	resets         int
	closed         bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.replies.Len() == 0 && p.timeoutOnEmpty {
		return 0, nil
	}
	return p.replies.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.resets++
	return nil
}

func TestSerialCommands(t *testing.T) {
	port := &fakePort{}
	act := NewSerial(port, 0, zerolog.Nop())

	require.NoError(t, act.Move(10, -2))
	require.NoError(t, act.Trigger())
	assert.Equal(t, "M 10 -2\nT\n", port.written.String())

	require.NoError(t, act.Close())
	assert.True(t, port.closed)
}

func TestSerialPosition(t *testing.T) {
	port := &fakePort{}
	port.replies.WriteString("640 360\r\n")
	act := NewSerial(port, 0, zerolog.Nop())

	pos, err := act.Position()
	require.NoError(t, err)
	assert.Equal(t, lockon.NewPoint(640, 360), pos)
	assert.Equal(t, "P\n", port.written.String())
	assert.Equal(t, 1, port.resets)
}

func TestSerialPositionTimeout(t *testing.T) {
	port := &fakePort{timeoutOnEmpty: true}
	port.replies.WriteString("64")
	act := NewSerial(port, 10*time.Millisecond, zerolog.Nop())

	_, err := act.Position()
	assert.True(t, errors.Is(err, ErrReadTimeout), "got %v", err)
}

func TestSerialPositionEOF(t *testing.T) {
	port := &fakePort{}
	act := NewSerial(port, 0, zerolog.Nop())

	_, err := act.Position()
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.EOF), "got %v", err)
}

func TestPortOptionsSerialMode(t *testing.T) {
	mode, err := DefaultPortOptions().SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 115200, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)

	_, err = PortOptions{}.SerialMode()
	assert.Error(t, err)
}
