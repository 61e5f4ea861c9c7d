package kinematics

import (
	"github.com/golang/geo/r2"

	"go.viam.com/armteleop/utils"
)

// ClampAngle limits angle to [-limit, limit]. If clamping was needed the returned reachable is
// false, otherwise the passed in reachable is returned unchanged so that calls can be chained
// across joints.
func ClampAngle(angle, limit float64, reachable bool) (float64, bool) {
	if angle < -limit {
		return -limit, false
	}
	if angle > limit {
		return limit, false
	}
	return angle, reachable
}

// Limits are the symmetric mechanical joint limits in degrees.
type Limits struct {
	JointA float64
	JointB float64
}

// Solution is the outcome of solving one target point.
type Solution struct {
	// AngleA and AngleB are in degrees and always within the limits.
	AngleA, AngleB float64
	// Target is the point the arm will actually reach. It differs from the requested point when
	// the request was out of reach or needed a joint beyond its limit.
	Target r2.Point
	// Reachable is false when the requested point could not be reached exactly.
	Reachable bool
}

// Solve runs inverse kinematics for target, converts to degrees and clamps both joints. When the
// target could not be reached exactly the returned Target is recomputed with forward kinematics
// from the clamped angles, so callers persisting it stay consistent with the arm.
func (s *Solver) Solve(target r2.Point, limits Limits) Solution {
	a, b, reachable := s.CalculateIK(target)

	degA, reachable := ClampAngle(utils.RadToDeg(a), limits.JointA, reachable)
	degB, reachable := ClampAngle(utils.RadToDeg(b), limits.JointB, reachable)

	if !reachable {
		target = s.CalculateFK(utils.DegToRad(degA), utils.DegToRad(degB))
	}
	return Solution{AngleA: degA, AngleB: degB, Target: target, Reachable: reachable}
}
