package actuate

import (
	"io"
	"time"

	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// maxReplyLen bounds a position reply so a chatty device can't stall the tick
const maxReplyLen = 64

// PortOptions defines serial port configuration parameters.
type PortOptions struct {
	BaudRate    int
	DataBits    int
	ReadTimeout time.Duration
}

// DefaultPortOptions returns 115200 8N1 with 50ms read timeout
func DefaultPortOptions() PortOptions {
	return PortOptions{
		BaudRate:    115200,
		DataBits:    8,
		ReadTimeout: 50 * time.Millisecond,
	}
}

// SerialMode converts options into go.bug.st/serial mode
func (opts PortOptions) SerialMode() (*serial.Mode, error) {
	if opts.BaudRate <= 0 {
		return nil, errors.Errorf("baud rate must be positive, got %d", opts.BaudRate)
	}
	dataBits := opts.DataBits
	if dataBits == 0 {
		dataBits = 8
	}
	return &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: dataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}, nil
}

// inputResetter is implemented by serial.Port. Stale bytes are dropped before a query.
type inputResetter interface {
	ResetInputBuffer() error
}

// Serial drives a pointer controller attached over a serial port
type Serial struct {
	port        io.ReadWriteCloser
	readTimeout time.Duration
	logger      zerolog.Logger
}

// OpenSerial opens port at path and wraps it into Serial actuator
func OpenSerial(path string, opts PortOptions, logger zerolog.Logger) (*Serial, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open serial port %q", path)
	}
	if opts.ReadTimeout > 0 {
		if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
			port.Close()
			return nil, errors.Wrap(err, "can't set read timeout")
		}
	}
	logger.Info().Str("port", path).Int("baud_rate", mode.BaudRate).Msg("Serial actuator opened")
	return NewSerial(port, opts.ReadTimeout, logger), nil
}

// NewSerial creates Serial actuator on top of already opened port
func NewSerial(port io.ReadWriteCloser, readTimeout time.Duration, logger zerolog.Logger) *Serial {
	return &Serial{
		port:        port,
		readTimeout: readTimeout,
		logger:      logger,
	}
}

// Move sends relative move
func (act *Serial) Move(dx, dy int) error {
	return act.send(EncodeMove(dx, dy))
}

// Trigger sends trigger command
func (act *Serial) Trigger() error {
	return act.send(EncodeTrigger())
}

// Position queries pointer position and waits for the reply
func (act *Serial) Position() (lockon.Point, error) {
	if resetter, ok := act.port.(inputResetter); ok {
		if err := resetter.ResetInputBuffer(); err != nil {
			return lockon.Point{}, errors.Wrap(err, "can't reset input buffer")
		}
	}
	if err := act.send(EncodePositionQuery()); err != nil {
		return lockon.Point{}, err
	}
	line, err := act.readLine()
	if err != nil {
		return lockon.Point{}, err
	}
	return ParsePosition(line)
}

// Close closes underlying port
func (act *Serial) Close() error {
	return act.port.Close()
}

func (act *Serial) send(line []byte) error {
	_, err := act.port.Write(line)
	if err != nil {
		return errors.Wrapf(err, "can't write command %q", line[:len(line)-1])
	}
	return nil
}

// readLine reads byte by byte until newline. go.bug.st/serial reports timeout as (0, nil).
func (act *Serial) readLine() (string, error) {
	var deadline time.Time
	if act.readTimeout > 0 {
		deadline = time.Now().Add(act.readTimeout)
	}
	line := make([]byte, 0, maxReplyLen)
	one := make([]byte, 1)
	for {
		n, err := act.port.Read(one)
		if err != nil {
			return "", errors.Wrap(err, "can't read reply")
		}
		if n == 0 {
			return "", ErrReadTimeout
		}
		if one[0] == '\n' {
			return string(line), nil
		}
		if len(line) >= maxReplyLen {
			return "", errors.Errorf("reply exceeds %d bytes", maxReplyLen)
		}
		line = append(line, one[0])
		if !deadline.IsZero() && time.Now().After(deadline) {
			return "", ErrReadTimeout
		}
	}
}
