package transport

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/armteleop/logging"
)

// Wire protocol tokens.
const (
	CommandMotor    = "MOTOR"
	CommandGrabber  = "GRABBER"
	CommandShutdown = "SHUTDOWN"

	AckPrefix = "OK"
)

// FormatMotor returns the motor command line for the given joint angles in degrees.
func FormatMotor(angleA, angleB float64) string {
	return fmt.Sprintf("%s %.2f %.2f\n", CommandMotor, angleA, angleB)
}

// FormatGrabber returns the gripper command line.
func FormatGrabber(closed bool) string {
	state := 0
	if closed {
		state = 1
	}
	return fmt.Sprintf("%s %d\n", CommandGrabber, state)
}

// Ack is the controller's reply to one command.
type Ack struct {
	Line string
}

// OK reports whether the controller accepted the command.
func (a Ack) OK() bool {
	return strings.HasPrefix(a.Line, AckPrefix)
}

// Conn is a half duplex connection to the motor controller: every command written is answered by
// exactly one line. Conn does no locking; a single goroutine is expected to own it.
type Conn struct {
	rwc    io.ReadWriteCloser
	lines  *LineReader
	logger logging.Logger
}

// NewConn wraps an established byte stream.
func NewConn(rwc io.ReadWriteCloser, logger logging.Logger) *Conn {
	return &Conn{rwc: rwc, lines: NewLineReader(rwc), logger: logger}
}

// AwaitReady reads lines until the sentinel token arrives. Other lines are logged.
func (c *Conn) AwaitReady(token string) error {
	for {
		line, err := c.lines.ReadLine()
		if err != nil {
			return errors.Wrap(err, "waiting for controller to become ready")
		}
		if line == token {
			c.logger.Info("controller is ready to receive commands")
			return nil
		}
		c.logger.Infof("controller: %s", line)
	}
}

// Send writes a single command line. line must include its trailing newline.
func (c *Conn) Send(line string) error {
	if _, err := io.WriteString(c.rwc, line); err != nil {
		return errors.Wrapf(err, "sending %q", strings.TrimSpace(line))
	}
	return nil
}

// SendMotor sends joint angles in degrees.
func (c *Conn) SendMotor(angleA, angleB float64) error {
	return c.Send(FormatMotor(angleA, angleB))
}

// SendGrabber sends the gripper state.
func (c *Conn) SendGrabber(closed bool) error {
	return c.Send(FormatGrabber(closed))
}

// ReadAck reads the reply to the last command.
func (c *Conn) ReadAck() (Ack, error) {
	line, err := c.lines.ReadLine()
	if err != nil {
		return Ack{}, err
	}
	return Ack{Line: line}, nil
}

// Shutdown tells the controller to stop and closes the connection. The connection is closed
// even if the shutdown line could not be written.
func (c *Conn) Shutdown() error {
	err := c.Send(CommandShutdown + "\n")
	return multierr.Combine(err, c.Close())
}

// Close closes the underlying stream without notifying the controller.
func (c *Conn) Close() error {
	return c.rwc.Close()
}
