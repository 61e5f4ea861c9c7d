// Package intent carries operator input from the front end to the control loop.
//
// Two sources exist. A Joystick holds the latest stick sample and is sampled once per tick.
// A JobQueue holds discrete coordinate and grip jobs and yields at most one per tick. The
// control loop only sees the Source interface.
package intent

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ErrMalformedIntent is returned for operator input that cannot be interpreted.
var ErrMalformedIntent = errors.New("malformed intent")

// Kind says what an Intent asks the arm to do.
type Kind int

// The known intent kinds.
const (
	// KindIdle means nothing is pending.
	KindIdle Kind = iota
	// KindJog moves the target in a direction, scaled by magnitude.
	KindJog
	// KindMoveTo moves the target to an absolute point.
	KindMoveTo
	// KindGrip requests a gripper state.
	KindGrip
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindJog:
		return "jog"
	case KindMoveTo:
		return "move_to"
	case KindGrip:
		return "grip"
	default:
		return "unknown"
	}
}

// Intent is one tick's worth of operator input.
type Intent struct {
	Kind Kind
	// Angle in degrees and Magnitude in percent, for KindJog.
	Angle     int
	Magnitude int
	// Point is the absolute target for KindMoveTo.
	Point r2.Point
	// Grabbing is the requested gripper state for KindGrip. A joystick also reports it with every
	// KindJog sample.
	Grabbing bool
}

// CarriesGrip reports whether Grabbing is meaningful for this intent.
func (i Intent) CarriesGrip() bool {
	return i.Kind == KindJog || i.Kind == KindGrip
}

// A Source yields the pending operator intent. Next must not block; with nothing pending it
// returns a KindIdle intent. An error wrapping ErrMalformedIntent means input was consumed but
// could not be understood.
type Source interface {
	Next() (Intent, error)
}
