package lockon

import "time"

// Decision is the outcome of one tick of the tracking core
type Decision struct {
	Selection Selection
	Intent    Intent
	// Distance (pixels) between pointer and target. Zero when there is no target
	Distance float64
	// Lock was cleared because the action was committed
	Released bool
}

// Core combines Tracker and Controller into a single per-tick decision function.
// It owns the only mutable state of the tracking core: the lock and the cooldown clock.
type Core struct {
	tracker    *Tracker
	controller *Controller
}

// NewCore creates new instance of Core
func NewCore(tracker *Tracker, controller *Controller) *Core {
	return &Core{
		tracker:    tracker,
		controller: controller,
	}
}

// NewCoreDefault creates Core with default tracker and controller
func NewCoreDefault() *Core {
	return NewCore(NewTrackerDefault(), NewControllerDefault())
}

// Step runs tracker and controller for one frame
func (core *Core) Step(candidates CandidateSet, pointer Point, now time.Time) Decision {
	selection := core.tracker.Update(candidates, pointer)
	decision := Decision{
		Selection: selection,
		Intent:    Idle(),
	}
	if !selection.HasTarget {
		return decision
	}
	decision.Distance = euclideanDistance(selection.Target, pointer)
	intent, release := core.controller.Decide(selection.Target, true, pointer, now)
	decision.Intent = intent
	if release {
		decision.Released = core.tracker.Release()
	}
	return decision
}

// Reset drops the lock. Used to get back to a safe state after a failed tick
func (core *Core) Reset() bool {
	return core.tracker.Release()
}

// Tracker returns underlying tracker
func (core *Core) Tracker() *Tracker {
	return core.tracker
}

// Controller returns underlying controller
func (core *Core) Controller() *Controller {
	return core.controller
}
