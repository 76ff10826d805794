// Package actuate implements pointer/actuation channels: a serial line-protocol controller and a virtual pointer.
package actuate

import (
	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
)

// ErrReadTimeout is returned when the device does not answer a position query in time
var ErrReadTimeout = errors.New("actuator read timeout")

// Actuator accepts relative moves and discrete triggers, and reports pointer position.
// Acknowledgements are not consulted: a nil error only means the command was handed to the device.
type Actuator interface {
	Move(dx, dy int) error
	Trigger() error
	Position() (lockon.Point, error)
	Close() error
}
