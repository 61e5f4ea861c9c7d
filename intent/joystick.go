package intent

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// MaxMagnitude is the stick deflection at full tilt.
const MaxMagnitude = 100

// Joystick is the latest stick sample shared between the front end and the control loop. Each
// field is loaded and stored atomically on its own; a reader may see angle and magnitude from
// different samples, which the next tick corrects.
type Joystick struct {
	angle     atomic.Int32
	magnitude atomic.Int32
	grabbing  atomic.Bool
}

// NewJoystick returns a centered joystick with the gripper open.
func NewJoystick() *Joystick {
	return &Joystick{}
}

// Update stores a new stick sample.
func (j *Joystick) Update(angle, magnitude int) {
	j.angle.Store(int32(angle))
	j.magnitude.Store(int32(magnitude))
}

// SetGrabbing stores the requested gripper state.
func (j *Joystick) SetGrabbing(grabbing bool) {
	j.grabbing.Store(grabbing)
}

// Snapshot returns the current angle, magnitude and gripper state.
func (j *Joystick) Snapshot() (angle, magnitude int, grabbing bool) {
	return int(j.angle.Load()), int(j.magnitude.Load()), j.grabbing.Load()
}

// Next implements Source. A joystick always has a sample, so it never returns KindIdle.
func (j *Joystick) Next() (Intent, error) {
	angle, magnitude, grabbing := j.Snapshot()
	return Intent{Kind: KindJog, Angle: angle, Magnitude: magnitude, Grabbing: grabbing}, nil
}

// ParseJoystickFrame parses a "<deg>#<dist>" frame sent by the browser joystick. The angle is
// normalized into [0, 360) and the magnitude must be within [0, MaxMagnitude].
func ParseJoystickFrame(frame string) (angle, magnitude int, err error) {
	degStr, distStr, ok := strings.Cut(strings.TrimSpace(frame), "#")
	if !ok {
		return 0, 0, errors.Wrapf(ErrMalformedIntent, "joystick frame %q has no separator", frame)
	}
	angle, err = strconv.Atoi(degStr)
	if err != nil {
		return 0, 0, errors.Wrapf(ErrMalformedIntent, "joystick angle %q", degStr)
	}
	magnitude, err = strconv.Atoi(distStr)
	if err != nil {
		return 0, 0, errors.Wrapf(ErrMalformedIntent, "joystick distance %q", distStr)
	}
	if magnitude < 0 || magnitude > MaxMagnitude {
		return 0, 0, errors.Wrapf(ErrMalformedIntent, "joystick distance %d out of range", magnitude)
	}
	angle %= 360
	if angle < 0 {
		angle += 360
	}
	return angle, magnitude, nil
}
