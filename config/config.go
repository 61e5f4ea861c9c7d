// Package config defines the process-wide configuration of the arm controller. A Config is built
// once at startup and never mutated afterwards.
package config

import (
	"time"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Mode selects which operator intent source drives the control loop.
type Mode string

// The known intent modes.
const (
	ModeJoystick Mode = "joystick"
	ModeJobs     Mode = "jobs"
)

// Config is the complete controller configuration.
type Config struct {
	Mode       Mode       `json:"mode" mapstructure:"mode"`
	Arm        Arm        `json:"arm" mapstructure:"arm"`
	Deadzone   Deadzone   `json:"deadzone" mapstructure:"deadzone"`
	Loop       Loop       `json:"loop" mapstructure:"loop"`
	Controller Controller `json:"controller" mapstructure:"controller"`
	Web        Web        `json:"web" mapstructure:"web"`

	ConfigFilePath string `json:"-" mapstructure:"-"`
}

// Arm holds the link geometry and the mechanical joint limits.
type Arm struct {
	L1     float64 `json:"l1" mapstructure:"l1"`
	L2     float64 `json:"l2" mapstructure:"l2"`
	Offset float64 `json:"offset" mapstructure:"offset"`
	// Joint limits are symmetric and in degrees.
	JointALimit float64 `json:"joint_a_limit_deg" mapstructure:"joint_a_limit_deg"`
	JointBLimit float64 `json:"joint_b_limit_deg" mapstructure:"joint_b_limit_deg"`
}

// Deadzone is the forbidden rectangle around the arm base.
type Deadzone struct {
	Left   float64 `json:"left" mapstructure:"left"`
	Right  float64 `json:"right" mapstructure:"right"`
	Top    float64 `json:"top" mapstructure:"top"`
	Bottom float64 `json:"bottom" mapstructure:"bottom"`
}

// Loop configures the fixed-rate control loop.
type Loop struct {
	Period time.Duration `json:"period" mapstructure:"period"`
	// Speed is the target point displacement per unit of joystick magnitude per second.
	Speed          float64 `json:"speed" mapstructure:"speed"`
	InitialTargetX float64 `json:"initial_x" mapstructure:"initial_x"`
	InitialTargetY float64 `json:"initial_y" mapstructure:"initial_y"`
	JobQueueSize   int     `json:"job_queue_size" mapstructure:"job_queue_size"`
}

// Controller describes how to reach the remote motor controller.
type Controller struct {
	// Address is host:port for TCP, or serial:///dev/ttyX for a serial line.
	Address      string        `json:"address" mapstructure:"address"`
	BaudRate     int           `json:"baud_rate" mapstructure:"baud_rate"`
	ReadyToken   string        `json:"ready_token" mapstructure:"ready_token"`
	DialAttempts int           `json:"dial_attempts" mapstructure:"dial_attempts"`
	DialBackoff  time.Duration `json:"dial_backoff" mapstructure:"dial_backoff"`
	DialTimeout  time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`
}

// Web configures the operator endpoint.
type Web struct {
	Listen string `json:"listen" mapstructure:"listen"`
}

// Default values, matching the arm this controller was first built for.
const (
	DefaultL1          = 11.3
	DefaultL2          = 6.8
	DefaultOffset      = 6.0
	DefaultJointALimit = 150.0
	DefaultJointBLimit = 90.0

	DefaultDeadzoneLeft   = -7.7
	DefaultDeadzoneRight  = 7.3
	DefaultDeadzoneTop    = 7.0
	DefaultDeadzoneBottom = -12.5

	DefaultPeriod = 50 * time.Millisecond
	// DefaultSpeed gives a per tick sensitivity of 0.00055 at the default period.
	DefaultSpeed        = 0.011
	DefaultInitialX     = 6.0
	DefaultInitialY     = 18.1
	DefaultJobQueueSize = 64

	DefaultAddress      = "10.42.0.3:1234"
	DefaultBaudRate     = 115200
	DefaultReadyToken   = "RDY"
	DefaultDialAttempts = 7
	DefaultDialBackoff  = 2 * time.Second
	DefaultDialTimeout  = 5 * time.Second

	DefaultListen = ":8080"
)

// Default returns a config with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeJoystick
	}
	if c.Arm.L1 == 0 {
		c.Arm.L1 = DefaultL1
	}
	if c.Arm.L2 == 0 {
		c.Arm.L2 = DefaultL2
	}
	if c.Arm.Offset == 0 {
		c.Arm.Offset = DefaultOffset
	}
	if c.Arm.JointALimit == 0 {
		c.Arm.JointALimit = DefaultJointALimit
	}
	if c.Arm.JointBLimit == 0 {
		c.Arm.JointBLimit = DefaultJointBLimit
	}
	// The deadzone is taken as a whole: a zero edge is a legitimate value.
	if c.Deadzone == (Deadzone{}) {
		c.Deadzone = Deadzone{
			Left:   DefaultDeadzoneLeft,
			Right:  DefaultDeadzoneRight,
			Top:    DefaultDeadzoneTop,
			Bottom: DefaultDeadzoneBottom,
		}
	}
	if c.Loop.Period == 0 {
		c.Loop.Period = DefaultPeriod
	}
	if c.Loop.Speed == 0 {
		c.Loop.Speed = DefaultSpeed
	}
	if c.Loop.InitialTargetX == 0 && c.Loop.InitialTargetY == 0 {
		c.Loop.InitialTargetX = DefaultInitialX
		c.Loop.InitialTargetY = DefaultInitialY
	}
	if c.Loop.JobQueueSize == 0 {
		c.Loop.JobQueueSize = DefaultJobQueueSize
	}
	if c.Controller.Address == "" {
		c.Controller.Address = DefaultAddress
	}
	if c.Controller.BaudRate == 0 {
		c.Controller.BaudRate = DefaultBaudRate
	}
	if c.Controller.ReadyToken == "" {
		c.Controller.ReadyToken = DefaultReadyToken
	}
	if c.Controller.DialAttempts == 0 {
		c.Controller.DialAttempts = DefaultDialAttempts
	}
	if c.Controller.DialBackoff == 0 {
		c.Controller.DialBackoff = DefaultDialBackoff
	}
	if c.Controller.DialTimeout == 0 {
		c.Controller.DialTimeout = DefaultDialTimeout
	}
	if c.Web.Listen == "" {
		c.Web.Listen = DefaultListen
	}
}

// Validate returns every problem found in the config.
func (c *Config) Validate() error {
	var errs error
	switch c.Mode {
	case ModeJoystick, ModeJobs:
	default:
		errs = multierr.Append(errs, errors.Errorf("unknown mode %q", c.Mode))
	}
	errs = multierr.Append(errs, c.Arm.Validate("arm"))
	errs = multierr.Append(errs, c.Deadzone.Validate("deadzone"))
	errs = multierr.Append(errs, c.Loop.Validate("loop"))
	errs = multierr.Append(errs, c.Controller.Validate("controller"))
	return errs
}

// Validate ensures the arm geometry is physical.
func (a Arm) Validate(path string) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"l1", a.L1},
		{"l2", a.L2},
		{"offset", a.Offset},
		{"joint_a_limit_deg", a.JointALimit},
		{"joint_b_limit_deg", a.JointBLimit},
	}
	var errs error
	for _, f := range fields {
		if f.value <= 0 {
			errs = multierr.Append(errs, newFieldError(path, f.name, "must be positive"))
		}
	}
	return errs
}

// Validate ensures the deadzone encloses a non-empty area.
func (d Deadzone) Validate(path string) error {
	if d.Left == d.Right || d.Top == d.Bottom {
		return newFieldError(path, "", "must have a non-zero width and height")
	}
	return nil
}

// Rect returns the deadzone as a normalised rectangle.
func (d Deadzone) Rect() r2.Rect {
	return r2.RectFromPoints(r2.Point{X: d.Left, Y: d.Top}, r2.Point{X: d.Right, Y: d.Bottom})
}

// Validate ensures the loop timing is usable.
func (l Loop) Validate(path string) error {
	var errs error
	if l.Period <= 0 {
		errs = multierr.Append(errs, newFieldError(path, "period", "must be positive"))
	}
	if l.Speed <= 0 {
		errs = multierr.Append(errs, newFieldError(path, "speed", "must be positive"))
	}
	if l.JobQueueSize < 1 {
		errs = multierr.Append(errs, newFieldError(path, "job_queue_size", "must be at least 1"))
	}
	return errs
}

// Sensitivity is the target displacement per unit magnitude for one tick. It is derived from the
// period so that the physical speed of the end effector does not depend on the loop rate.
func (l Loop) Sensitivity() float64 {
	return l.Speed * l.Period.Seconds()
}

// InitialTarget is where the target point starts before any operator input.
func (l Loop) InitialTarget() r2.Point {
	return r2.Point{X: l.InitialTargetX, Y: l.InitialTargetY}
}

// Validate ensures the controller can be dialed.
func (c Controller) Validate(path string) error {
	var errs error
	if c.Address == "" {
		errs = multierr.Append(errs, newFieldError(path, "address", "is required"))
	}
	if c.ReadyToken == "" {
		errs = multierr.Append(errs, newFieldError(path, "ready_token", "is required"))
	}
	if c.DialAttempts < 1 {
		errs = multierr.Append(errs, newFieldError(path, "dial_attempts", "must be at least 1"))
	}
	if c.DialBackoff < 0 {
		errs = multierr.Append(errs, newFieldError(path, "dial_backoff", "must not be negative"))
	}
	return errs
}

func newFieldError(path, field, msg string) error {
	if field == "" {
		return errors.Errorf("%s: %s", path, msg)
	}
	return errors.Errorf("%s.%s: %s", path, field, msg)
}
