// Package kinematics implements the closed form inverse and forward kinematics of a planar two
// link arm whose end effector sits at a fixed offset from the second joint axis.
//
// Angles are measured from the +y axis towards +x. That is why the heading of a point (x, y) is
// atan2(x, y) rather than the usual atan2(y, x); joint limits and motor directions on the
// controller side are defined against this convention.
package kinematics

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/armteleop/utils"
)

// Geometry is the immutable description of the arm's links.
type Geometry struct {
	L1     float64
	L2     float64
	Offset float64
}

// Solver converts between a target point and joint angles. It holds no state besides values
// derived from the geometry, so it is safe for concurrent use.
type Solver struct {
	l1, l1Sq float64
	// d2 is the distance from the second joint axis to the end effector.
	d2, d2Sq float64
	gamma2   float64
	// beta2 is the angle between the second link and the line to the end effector.
	beta2    float64
	maxReach float64
}

// NewSolver derives the solver constants from the given geometry.
func NewSolver(g Geometry) (*Solver, error) {
	if g.L1 <= 0 || g.L2 <= 0 || g.Offset <= 0 {
		return nil, errors.Errorf("link lengths and offset must be positive, got %+v", g)
	}
	d2Sq := g.L2*g.L2 + g.Offset*g.Offset
	d2 := math.Sqrt(d2Sq)
	gamma2 := math.Atan(g.L2 / g.Offset)
	return &Solver{
		l1:       g.L1,
		l1Sq:     g.L1 * g.L1,
		d2:       d2,
		d2Sq:     d2Sq,
		gamma2:   gamma2,
		beta2:    math.Pi/2 - gamma2,
		maxReach: g.L1 + d2,
	}, nil
}

// MaxReach is the largest distance from the base the end effector can reach.
func (s *Solver) MaxReach() float64 {
	return s.maxReach
}

// Beta2 is the fixed angle, in radians, between the second link and the end effector.
func (s *Solver) Beta2() float64 {
	return s.beta2
}

// CalculateIK returns the joint angles, in radians, that place the end effector at target.
//
// When the target is beyond MaxReach the arm is pointed at it fully extended (angleB = -Beta2)
// and reachable is false. Targets closer to the base than the arm can fold produce the nearest
// folded posture; at the base itself the heading is atan2(0, 0) = 0.
func (s *Solver) CalculateIK(target r2.Point) (angleA, angleB float64, reachable bool) {
	d1Sq := target.X*target.X + target.Y*target.Y
	d1 := math.Sqrt(d1Sq)
	heading := math.Atan2(target.X, target.Y)

	if d1 > s.maxReach {
		return heading, -s.beta2, false
	}

	alpha := math.Acos(utils.Clamp((d1Sq+s.l1Sq-s.d2Sq)/(2*d1*s.l1), -1, 1))
	beta1 := math.Acos(utils.Clamp((s.d2Sq+s.l1Sq-d1Sq)/(2*s.d2*s.l1), -1, 1))

	return heading - alpha, math.Pi - beta1 - s.beta2, true
}

// CalculateFK returns the end effector position for the given joint angles in radians.
func (s *Solver) CalculateFK(angleA, angleB float64) r2.Point {
	effector := angleA + angleB + s.beta2
	return r2.Point{
		X: s.l1*math.Sin(angleA) + s.d2*math.Sin(effector),
		Y: s.l1*math.Cos(angleA) + s.d2*math.Cos(effector),
	}
}
