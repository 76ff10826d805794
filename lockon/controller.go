package lockon

import (
	"math"
	"time"
)

// ControllerOptions configures Controller
type ControllerOptions struct {
	// Fraction of remaining gap closed per tick, in (0, 1]
	Smoothing float64
	// Commit when pointer is within this distance (pixels) from the target
	ClickThreshold float64
	// Minimum time between two committed actions
	Cooldown time.Duration
	// Caps |dx| and |dy| of a single move. Zero disables the cap
	MaxStep int
}

// DefaultControllerOptions returns defaults: smoothing 0.5, click threshold 20px, cooldown 100ms
func DefaultControllerOptions() ControllerOptions {
	return ControllerOptions{
		Smoothing:      0.5,
		ClickThreshold: 20.0,
		Cooldown:       100 * time.Millisecond,
		MaxStep:        0,
	}
}

// Controller converts the pointer-to-target vector into damped moves and gates commits by cooldown.
type Controller struct {
	smoothing        float64
	clickThresholdSq float64
	cooldown         time.Duration
	maxStep          int
	// Time of the last committed action. Zero value means never
	lastAction time.Time
}

// NewControllerDefault creates default instance of Controller
func NewControllerDefault() *Controller {
	return NewController(DefaultControllerOptions())
}

// NewController creates new instance of Controller
func NewController(opts ControllerOptions) *Controller {
	return &Controller{
		smoothing:        opts.Smoothing,
		clickThresholdSq: squarePixels(opts.ClickThreshold),
		cooldown:         opts.Cooldown,
		maxStep:          opts.MaxStep,
	}
}

// Decide computes the intent for a frame. The returned flag asks the caller to clear the lock:
// once acted upon the same object must be re-acquired before it can be acted upon again.
func (controller *Controller) Decide(target Point, hasTarget bool, pointer Point, now time.Time) (Intent, bool) {
	if !hasTarget {
		return Idle(), false
	}
	rel := target.Sub(pointer)
	distSq := rel.X*rel.X + rel.Y*rel.Y
	if float64(distSq) > controller.clickThresholdSq {
		dx := int(math.Round(float64(rel.X) * controller.smoothing))
		dy := int(math.Round(float64(rel.Y) * controller.smoothing))
		if controller.maxStep > 0 {
			dx = clampInt(dx, -controller.maxStep, controller.maxStep)
			dy = clampInt(dy, -controller.maxStep, controller.maxStep)
		}
		if dx == 0 && dy == 0 {
			// Sub-pixel remainder
			return Idle(), false
		}
		return Move(dx, dy), false
	}
	if !controller.lastAction.IsZero() && now.Sub(controller.lastAction) < controller.cooldown {
		return Idle(), false
	}
	controller.lastAction = now
	return Commit(), true
}

// LastAction returns time of the last committed action (zero if none yet)
func (controller *Controller) LastAction() time.Time {
	return controller.lastAction
}

// CooldownUntil returns the earliest time the next commit is allowed
func (controller *Controller) CooldownUntil() time.Time {
	if controller.lastAction.IsZero() {
		return time.Time{}
	}
	return controller.lastAction.Add(controller.cooldown)
}
