package exercise

import (
	"math"

	"github.com/ayusman/reptrack/internal/detector"
)

// Stage is the current phase of a repetition.
type Stage string

const (
	StageNone Stage = ""
	StageUp   Stage = "up"
	StageDown Stage = "down"
)

// String returns the stage label, "none" for StageNone.
func (s Stage) String() string {
	if s == StageNone {
		return "none"
	}
	return string(s)
}

// State is the repetition count and current stage of a tracking session.
type State struct {
	Count int   `json:"count"`
	Stage Stage `json:"stage"`
}

// Reading describes what a single Update observed.
type Reading struct {
	// Measured is false when the required joints were missing or not finite
	// and the frame was skipped.
	Measured bool
	// Angle is the measured joint angle in degrees. Zero for position rules.
	Angle float64
	// Counted is true when this frame completed a repetition.
	Counted bool
}

// Counter turns per-frame joint positions into a debounced repetition count
// using two-threshold hysteresis. A Counter is not safe for concurrent use;
// it is meant to be owned by the goroutine that feeds it frames.
type Counter struct {
	rule  Rule
	state State
}

// NewCounter creates a Counter for the given exercise, starting at (0, StageNone).
func NewCounter(k Kind) (*Counter, error) {
	rule, err := RuleFor(k)
	if err != nil {
		return nil, err
	}
	return &Counter{rule: rule}, nil
}

// Kind returns the exercise being counted.
func (c *Counter) Kind() Kind {
	return c.rule.Kind
}

// Rule returns the counting rule in use.
func (c *Counter) Rule() Rule {
	return c.rule
}

// State returns the current count and stage.
func (c *Counter) State() State {
	return c.state
}

// Reset returns the counter to (0, StageNone).
func (c *Counter) Reset() {
	c.state = State{}
}

// Update applies one frame of joints. If any joint the rule needs is absent
// or not finite the frame is ignored and the state is left untouched.
func (c *Counter) Update(joints detector.JointSet) Reading {
	if joints == nil {
		return Reading{}
	}

	switch c.rule.Shape {
	case ShapePosition:
		head, ok1 := joints.Get(c.rule.Joints[0])
		ref, ok2 := joints.Get(c.rule.Joints[1])
		if !ok1 || !ok2 || !Finite(head, ref) {
			return Reading{}
		}
		return Reading{Measured: true, Counted: c.UpdatePosition(head, ref)}

	default:
		a, ok1 := joints.Get(c.rule.Joints[0])
		b, ok2 := joints.Get(c.rule.Joints[1])
		cc, ok3 := joints.Get(c.rule.Joints[2])
		if !ok1 || !ok2 || !ok3 || !Finite(a, b, cc) {
			return Reading{}
		}
		angle := Angle(a, b, cc)
		return Reading{Measured: true, Angle: angle, Counted: c.UpdateAngle(angle)}
	}
}

// UpdateAngle applies one angle reading to an angle rule and reports whether
// a repetition was completed. NaN and infinite readings are ignored.
//
// Entering the down zone arms the counter; entering the up zone while armed
// counts one repetition and disarms it.
func (c *Counter) UpdateAngle(angle float64) bool {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return false
	}

	if c.rule.InDown(angle) {
		c.state.Stage = StageDown
		return false
	}
	if c.rule.InUp(angle) && c.state.Stage == StageDown {
		c.state.Stage = StageUp
		c.state.Count++
		return true
	}
	return false
}

// UpdatePosition applies one head/reference observation to a position rule
// and reports whether a repetition was completed. Smaller Y is higher in the
// image: the head rising above the reference arms the counter and dropping
// back below it counts the repetition.
func (c *Counter) UpdatePosition(head, reference detector.Point2D) bool {
	if head.Y < reference.Y {
		c.state.Stage = StageUp
		return false
	}
	if head.Y > reference.Y && c.state.Stage == StageUp {
		c.state.Stage = StageDown
		c.state.Count++
		return true
	}
	return false
}
