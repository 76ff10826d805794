package actuate

import (
	"image"

	"github.com/LdDl/lockon/lockon"
	"github.com/rs/zerolog"
)

// Virtual is a dead-reckoning pointer. Moves are applied to an internal position, optionally clamped to bounds.
type Virtual struct {
	position lockon.Point
	bounds   image.Rectangle
	moves    int
	triggers int
	logger   zerolog.Logger
}

// NewVirtual creates virtual pointer at start. Empty bounds disable clamping.
func NewVirtual(start lockon.Point, bounds image.Rectangle, logger zerolog.Logger) *Virtual {
	return &Virtual{
		position: start,
		bounds:   bounds,
		logger:   logger,
	}
}

// Move shifts pointer by (dx, dy)
func (act *Virtual) Move(dx, dy int) error {
	act.position = lockon.NewPoint(act.position.X+dx, act.position.Y+dy)
	if !act.bounds.Empty() {
		act.position.X = clamp(act.position.X, act.bounds.Min.X, act.bounds.Max.X-1)
		act.position.Y = clamp(act.position.Y, act.bounds.Min.Y, act.bounds.Max.Y-1)
	}
	act.moves++
	act.logger.Debug().Int("dx", dx).Int("dy", dy).Int("x", act.position.X).Int("y", act.position.Y).Msg("Virtual move")
	return nil
}

// Trigger counts a trigger
func (act *Virtual) Trigger() error {
	act.triggers++
	act.logger.Debug().Int("x", act.position.X).Int("y", act.position.Y).Msg("Virtual trigger")
	return nil
}

// Position returns current pointer position
func (act *Virtual) Position() (lockon.Point, error) {
	return act.position, nil
}

// Moves returns number of moves applied
func (act *Virtual) Moves() int {
	return act.moves
}

// Triggers returns number of triggers received
func (act *Virtual) Triggers() int {
	return act.triggers
}

// Close is no-op
func (act *Virtual) Close() error {
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
