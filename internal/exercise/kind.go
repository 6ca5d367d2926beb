package exercise

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/reptrack/internal/detector"
)

// ErrUnknownExercise is returned when an exercise name or kind is not recognized.
var ErrUnknownExercise = errors.New("unknown exercise")

// Kind identifies one of the supported exercises.
type Kind int

const (
	// Squat is counted on the left hip-knee-ankle angle.
	Squat Kind = iota + 1
	// DumbbellCurl is counted on the left shoulder-elbow-wrist angle, with inverted polarity.
	DumbbellCurl
	// PushUp is counted on the left shoulder-elbow-wrist angle.
	PushUp
	// PullUp is counted by comparing the head height against the shoulder.
	PullUp
)

// Shape is the form of update rule a counter applies each frame.
type Shape string

const (
	// ShapeAngle counts on an angle crossing two thresholds.
	ShapeAngle Shape = "angle"
	// ShapePosition counts on a landmark moving above and back below another.
	ShapePosition Shape = "position"
)

// Rule holds the per-exercise counting parameters.
type Rule struct {
	Kind  Kind
	Shape Shape

	// Joints are the (a, b, c) joints of the measured angle, b being the vertex.
	// For ShapePosition only the first two are used: the tracked landmark and
	// the reference it is compared against.
	Joints [3]detector.Joint

	// Low and High are the hysteresis thresholds in degrees, Low < High.
	Low  float64
	High float64

	// Inverted swaps the zones: the down zone is above High and the up zone
	// below Low. Curls flex the opposite way to squats and push-ups.
	Inverted bool
}

// InDown reports whether angle is inside the rule's down zone.
func (r Rule) InDown(angle float64) bool {
	if r.Inverted {
		return angle > r.High
	}
	return angle < r.Low
}

// InUp reports whether angle is inside the rule's up zone.
func (r Rule) InUp(angle float64) bool {
	if r.Inverted {
		return angle < r.Low
	}
	return angle > r.High
}

// Tracked returns the joints the rule reads each frame.
func (r Rule) Tracked() []detector.Joint {
	if r.Shape == ShapePosition {
		return r.Joints[:2]
	}
	return r.Joints[:]
}

var rules = map[Kind]Rule{
	Squat: {
		Kind:   Squat,
		Shape:  ShapeAngle,
		Joints: [3]detector.Joint{detector.JointLeftHip, detector.JointLeftKnee, detector.JointLeftAnkle},
		Low:    90,
		High:   160,
	},
	DumbbellCurl: {
		Kind:     DumbbellCurl,
		Shape:    ShapeAngle,
		Joints:   [3]detector.Joint{detector.JointLeftShoulder, detector.JointLeftElbow, detector.JointLeftWrist},
		Low:      50,
		High:     160,
		Inverted: true,
	},
	PushUp: {
		Kind:   PushUp,
		Shape:  ShapeAngle,
		Joints: [3]detector.Joint{detector.JointLeftShoulder, detector.JointLeftElbow, detector.JointLeftWrist},
		Low:    90,
		High:   160,
	},
	PullUp: {
		Kind:   PullUp,
		Shape:  ShapePosition,
		Joints: [3]detector.Joint{detector.JointNose, detector.JointLeftShoulder},
	},
}

// Kinds returns every supported exercise in display order.
func Kinds() []Kind {
	return []Kind{Squat, DumbbellCurl, PushUp, PullUp}
}

// RuleFor returns the counting rule for k.
func RuleFor(k Kind) (Rule, error) {
	r, ok := rules[k]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %d", ErrUnknownExercise, int(k))
	}
	return r, nil
}

// Valid reports whether k is a supported exercise.
func (k Kind) Valid() bool {
	_, ok := rules[k]
	return ok
}

// String returns the canonical name of the exercise.
func (k Kind) String() string {
	switch k {
	case Squat:
		return "squat"
	case DumbbellCurl:
		return "dumbbell-curl"
	case PushUp:
		return "push-up"
	case PullUp:
		return "pull-up"
	default:
		return "unknown"
	}
}

// Title returns a human-readable label, e.g. "Dumbbell Curls".
func (k Kind) Title() string {
	switch k {
	case Squat:
		return "Squats"
	case DumbbellCurl:
		return "Dumbbell Curls"
	case PushUp:
		return "Push-ups"
	case PullUp:
		return "Pull-ups"
	default:
		return "Unknown"
	}
}

// ParseKind parses an exercise name. Matching ignores case, spaces,
// hyphens, underscores and a trailing plural "s", so "Push-ups",
// "push_up" and "pushup" all select PushUp.
func ParseKind(name string) (Kind, error) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(name)))
	key = strings.TrimSuffix(key, "s")

	switch key {
	case "squat":
		return Squat, nil
	case "dumbbellcurl", "curl", "bicepcurl":
		return DumbbellCurl, nil
	case "pushup":
		return PushUp, nil
	case "pullup", "chinup":
		return PullUp, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownExercise, name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownExercise, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
