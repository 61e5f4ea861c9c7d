package config

import (
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.Mode, test.ShouldEqual, ModeJoystick)
	test.That(t, cfg.Arm.L1, test.ShouldEqual, 11.3)
	test.That(t, cfg.Arm.JointBLimit, test.ShouldEqual, 90.0)
	test.That(t, cfg.Controller.DialAttempts, test.ShouldEqual, 7)
	test.That(t, cfg.Controller.DialBackoff, test.ShouldEqual, 2*time.Second)
	test.That(t, cfg.Loop.InitialTarget(), test.ShouldResemble, r2.Point{X: 6.0, Y: 18.1})
}

func TestSensitivityFollowsPeriod(t *testing.T) {
	l := Loop{Period: 50 * time.Millisecond, Speed: DefaultSpeed}
	test.That(t, l.Sensitivity(), test.ShouldAlmostEqual, 0.00055)

	// Halving the period halves the per tick step, keeping the speed constant.
	l.Period = 25 * time.Millisecond
	test.That(t, l.Sensitivity(), test.ShouldAlmostEqual, 0.000275)
}

func TestDeadzoneRect(t *testing.T) {
	rect := Default().Deadzone.Rect()
	test.That(t, rect.X.Lo, test.ShouldEqual, -7.7)
	test.That(t, rect.X.Hi, test.ShouldEqual, 7.3)
	test.That(t, rect.Y.Lo, test.ShouldEqual, -12.5)
	test.That(t, rect.Y.Hi, test.ShouldEqual, 7.0)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Mode = "teleport"
	cfg.Arm.L2 = -1
	cfg.Deadzone.Left = cfg.Deadzone.Right
	cfg.Loop.Period = 0
	cfg.Controller.DialAttempts = 0

	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown mode "teleport"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, "arm.l2: must be positive")
	test.That(t, err.Error(), test.ShouldContainSubstring, "deadzone: must have a non-zero width and height")
	test.That(t, err.Error(), test.ShouldContainSubstring, "loop.period: must be positive")
	test.That(t, err.Error(), test.ShouldContainSubstring, "controller.dial_attempts: must be at least 1")
}
