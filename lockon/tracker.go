package lockon

import (
	"github.com/google/uuid"
)

// TrackerOptions configures Tracker
type TrackerOptions struct {
	// Max distance (pixels) between lock's last position and a candidate to count as the same object
	LockTolerance float64
	// Acquisition ignores candidates at this distance from pointer or farther. Zero disables the filter
	MaxTargetDistance float64
	// Match against Kalman-predicted position as well as the last confirmed one
	Predict bool
	// Time step for the predictor (in frames or seconds, must be consistent). Default 1.0
	PredictDT float64
	// Max number of positions kept in lock's trail. Default 150
	MaxTrailLen int
}

// DefaultTrackerOptions returns defaults: tolerance 50px, no max distance, no prediction
func DefaultTrackerOptions() TrackerOptions {
	return TrackerOptions{
		LockTolerance:     50.0,
		MaxTargetDistance: 0.0,
		Predict:           false,
		PredictDT:         1.0,
		MaxTrailLen:       150,
	}
}

// Selection is the tracker's verdict for one frame
type Selection struct {
	// Current frame's target. Meaningful only if HasTarget is true
	Target    Point
	HasTarget bool
	// Identifier of the lock the target belongs to
	LockID uuid.UUID
	// A new lock was created this frame
	Acquired bool
	// The previous lock was dropped this frame (it may be replaced by a new one in the same frame)
	Lost bool
	// Lock's predictor failed this frame and was turned off. Lock itself is still maintained
	PredictorErr error
}

// Tracker holds at most one locked target and maintains it across frames.
type Tracker struct {
	lock *Lock
	// Squared tolerance radius
	lockToleranceSq float64
	// Squared max acquisition range. Zero means disabled
	maxTargetDistanceSq float64
	predict             bool
	predictDT           float64
	maxTrailLen         int
}

// NewTrackerDefault creates default instance of Tracker
func NewTrackerDefault() *Tracker {
	return NewTracker(DefaultTrackerOptions())
}

// NewTracker creates new instance of Tracker
func NewTracker(opts TrackerOptions) *Tracker {
	if opts.PredictDT <= 0 {
		opts.PredictDT = 1.0
	}
	if opts.MaxTrailLen <= 0 {
		opts.MaxTrailLen = 150
	}
	return &Tracker{
		lockToleranceSq:     squarePixels(opts.LockTolerance),
		maxTargetDistanceSq: squarePixels(opts.MaxTargetDistance),
		predict:             opts.Predict,
		predictDT:           opts.PredictDT,
		maxTrailLen:         opts.MaxTrailLen,
	}
}

// Update runs lock maintenance and then acquisition against the frame's candidates.
// Absence of a target is a normal outcome, not an error.
func (tracker *Tracker) Update(candidates CandidateSet, pointer Point) Selection {
	selection := Selection{}

	// Nothing seen: an object must never be remembered past one frame without re-confirmation
	if len(candidates) == 0 {
		selection.Lost = tracker.Release()
		return selection
	}

	if tracker.lock != nil {
		idx, ok, err := tracker.maintain(candidates)
		selection.PredictorErr = err
		if ok {
			selection.Target = candidates[idx].Center
			selection.HasTarget = true
			selection.LockID = tracker.lock.id
			return selection
		}
		tracker.lock = nil
		selection.Lost = true
	}

	ranked := rankByDistance(pointer, candidates, tracker.maxTargetDistanceSq)
	if ranked.Len() == 0 {
		return selection
	}
	nearest := ranked.Pop()
	center := candidates[nearest.index].Center
	if tracker.predict {
		tracker.lock = newPredictedLock(center, tracker.maxTrailLen, tracker.predictDT)
	} else {
		tracker.lock = newLock(center, tracker.maxTrailLen)
	}
	selection.Target = center
	selection.HasTarget = true
	selection.LockID = tracker.lock.id
	selection.Acquired = true
	return selection
}

// maintain looks for the candidate nearest to the lock. Lock rides that candidate if it is within tolerance.
func (tracker *Tracker) maintain(candidates CandidateSet) (int, bool, error) {
	lock := tracker.lock
	lock.predictNextPosition()

	ranked := rankByDistance(lock.position, candidates, 0)
	best := ranked.Pop()
	if lock.predictor != nil {
		rankedPredicted := rankByDistance(lock.predicted, candidates, 0)
		alt := rankedPredicted.Pop()
		if alt.distance < best.distance || (alt.distance == best.distance && alt.index < best.index) {
			best = alt
		}
	}
	if float64(best.distance) >= tracker.lockToleranceSq {
		return -1, false, nil
	}
	err := lock.update(candidates[best.index].Center)
	return best.index, true, err
}

// Release clears the lock. Returns true if there was a lock to clear.
func (tracker *Tracker) Release() bool {
	if tracker.lock == nil {
		return false
	}
	tracker.lock = nil
	return true
}

// Locked reports whether tracker currently holds a lock
func (tracker *Tracker) Locked() bool {
	return tracker.lock != nil
}

// Lock returns snapshot of current lock
func (tracker *Tracker) Lock() (Lock, bool) {
	if tracker.lock == nil {
		return Lock{}, false
	}
	return tracker.lock.snapshot(), true
}

func squarePixels(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return v * v
}
