package lockon

import (
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// positionPredictor is satisfied by *kalman_filter.Kalman2D
type positionPredictor interface {
	Predict()
	Update(x, y float64) error
	GetState() (float64, float64)
}

// Lock is the tracker's committed association with one candidate across frames.
type Lock struct {
	id          uuid.UUID
	position    Point
	predicted   Point
	trail       []Point
	maxTrailLen int
	hits        int
	predictor   positionPredictor
}

func newLock(position Point, maxTrailLen int) *Lock {
	if maxTrailLen < 1 {
		maxTrailLen = 1
	}
	lock := Lock{
		id:          uuid.New(),
		position:    position,
		predicted:   position,
		trail:       make([]Point, 0, maxTrailLen),
		maxTrailLen: maxTrailLen,
		hits:        1,
	}
	lock.trail = append(lock.trail, position)
	return &lock
}

func newPredictedLock(position Point, maxTrailLen int, dt float64) *Lock {
	lock := newLock(position, maxTrailLen)

	/* Kalman filter props */
	ux := 1.0
	uy := 1.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	lock.predictor = kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(float64(position.X), float64(position.Y)))
	return lock
}

// GetID returns lock's identifier
func (lock *Lock) GetID() uuid.UUID {
	return lock.id
}

// GetPosition returns last confirmed position
func (lock *Lock) GetPosition() Point {
	return lock.position
}

// GetPredicted returns predicted next position. Equals last confirmed position when prediction is disabled
func (lock *Lock) GetPredicted() Point {
	return lock.predicted
}

// GetTrail returns copy of confirmed positions, oldest first
func (lock *Lock) GetTrail() []Point {
	trail := make([]Point, len(lock.trail))
	copy(trail, lock.trail)
	return trail
}

// GetHits returns number of frames this lock has been confirmed in (including acquisition)
func (lock *Lock) GetHits() int {
	return lock.hits
}

// snapshot returns detached copy safe to hand out of the tracker
func (lock *Lock) snapshot() Lock {
	return Lock{
		id:          lock.id,
		position:    lock.position,
		predicted:   lock.predicted,
		trail:       lock.GetTrail(),
		maxTrailLen: lock.maxTrailLen,
		hits:        lock.hits,
	}
}

// predictNextPosition executes Kalman filter's first step.
// Does nothing if lock was created without predictor
func (lock *Lock) predictNextPosition() {
	if lock.predictor == nil {
		return
	}
	lock.predictor.Predict()
	stateX, stateY := lock.predictor.GetState()
	lock.predicted = Point{X: int(math.Round(stateX)), Y: int(math.Round(stateY))}
}

// update moves lock to the matched candidate center and feeds the measurement to the predictor.
// A predictor failure disables prediction for this lock; the position is updated anyway.
func (lock *Lock) update(position Point) error {
	lock.position = position
	lock.predicted = position
	lock.hits++
	lock.trail = append(lock.trail, position)
	if len(lock.trail) > lock.maxTrailLen {
		lock.trail = lock.trail[1:]
	}
	if lock.predictor == nil {
		return nil
	}
	err := lock.predictor.Update(float64(position.X), float64(position.Y))
	if err != nil {
		lock.predictor = nil
		return errors.Wrapf(err, "Can't update predictor of lock %s", lock.id.String())
	}
	return nil
}
