package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestAngleConversions(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90.0)
	test.That(t, RadToDeg(DegToRad(-150)), test.ShouldAlmostEqual, -150.0)
}

func TestClamp(t *testing.T) {
	test.That(t, Clamp(2, -1, 1), test.ShouldEqual, 1.0)
	test.That(t, Clamp(-2, -1, 1), test.ShouldEqual, -1.0)
	test.That(t, Clamp(0.25, -1, 1), test.ShouldEqual, 0.25)
}
