// Package fake implements a simulated motor controller that speaks the controller line protocol.
// It is used in tests and by the --fake-controller flag to run without hardware.
package fake

import (
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/armteleop/logging"
	"go.viam.com/armteleop/transport"
)

// DefaultBanner is what the controller prints before it is ready.
var DefaultBanner = []string{"Motor Control Starting", "Resetting grabber"}

// Options configures a Controller. The zero value behaves like the real controller.
type Options struct {
	// Banner lines are sent before the ready token. Nil means DefaultBanner.
	Banner []string
	// ReadyToken defaults to "RDY".
	ReadyToken string
	// Reply overrides the reply to a command. Returning "" falls back to the default reply.
	Reply func(command string) string
	// ReplyDelay holds every reply back, like a controller still busy moving.
	ReplyDelay time.Duration
	// DisconnectAfter closes the connection instead of answering the Nth command. Zero never
	// disconnects.
	DisconnectAfter int
}

// Controller is a simulated controller. It tracks the last commanded pose.
type Controller struct {
	opts   Options
	logger logging.Logger

	mu       sync.Mutex
	commands []string
	angleA   float64
	angleB   float64
	grabbing bool
	shutdown bool
}

// New returns a controller with the given options.
func New(opts Options, logger logging.Logger) *Controller {
	if opts.Banner == nil {
		opts.Banner = DefaultBanner
	}
	if opts.ReadyToken == "" {
		opts.ReadyToken = "RDY"
	}
	return &Controller{opts: opts, logger: logger}
}

// Serve speaks the protocol on rwc until the peer sends SHUTDOWN or goes away, then closes rwc.
// A peer hanging up is not an error.
func (c *Controller) Serve(rwc io.ReadWriteCloser) (err error) {
	defer func() {
		err = multierr.Combine(err, rwc.Close())
	}()

	for _, line := range c.opts.Banner {
		if _, err := io.WriteString(rwc, line+"\n"); err != nil {
			return errors.Wrap(err, "writing banner")
		}
	}
	if _, err := io.WriteString(rwc, c.opts.ReadyToken+"\n"); err != nil {
		return errors.Wrap(err, "writing ready token")
	}

	lines := transport.NewLineReader(rwc)
	for {
		command, err := lines.ReadLine()
		if err != nil {
			if errors.Is(err, transport.ErrClosed) {
				return nil
			}
			return err
		}
		command = strings.TrimSpace(command)

		count := c.record(command)
		if command == transport.CommandShutdown {
			c.logger.Info("fake controller received shutdown")
			return nil
		}
		if c.opts.DisconnectAfter > 0 && count >= c.opts.DisconnectAfter {
			c.logger.Infow("fake controller disconnecting", "after", count)
			return nil
		}

		reply := ""
		if c.opts.Reply != nil {
			reply = c.opts.Reply(command)
		}
		if reply == "" {
			reply = c.apply(command)
		}
		if c.opts.ReplyDelay > 0 {
			time.Sleep(c.opts.ReplyDelay)
		}
		if _, err := io.WriteString(rwc, reply+"\n"); err != nil {
			return errors.Wrap(err, "writing reply")
		}
	}
}

func (c *Controller) record(command string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, command)
	if command == transport.CommandShutdown {
		c.shutdown = true
	}
	return len(c.commands)
}

// apply updates the simulated pose and returns the reply the real controller would send.
func (c *Controller) apply(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "ERR empty command"
	}
	switch fields[0] {
	case transport.CommandMotor:
		if len(fields) != 3 {
			return "ERR bad motor command"
		}
		a, errA := strconv.ParseFloat(fields[1], 64)
		b, errB := strconv.ParseFloat(fields[2], 64)
		if errA != nil || errB != nil {
			return "ERR bad motor command"
		}
		c.mu.Lock()
		c.angleA, c.angleB = a, b
		c.mu.Unlock()
		c.logger.Debugw("fake controller moved", "a", a, "b", b)
		return transport.AckPrefix
	case transport.CommandGrabber:
		if len(fields) != 2 || (fields[1] != "0" && fields[1] != "1") {
			return "Wrong grabber state"
		}
		c.mu.Lock()
		c.grabbing = fields[1] == "1"
		c.mu.Unlock()
		return transport.AckPrefix
	default:
		return "ERR unknown command"
	}
}

// Commands returns every command received so far.
func (c *Controller) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commands...)
}

// Pose returns the last commanded joint angles in degrees and the gripper state.
func (c *Controller) Pose() (angleA, angleB float64, grabbing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.angleA, c.angleB, c.grabbing
}

// ShutdownReceived reports whether SHUTDOWN has arrived.
func (c *Controller) ShutdownReceived() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown
}

// Pipe starts serving one end of an in-memory connection and returns the other end. The returned
// channel yields Serve's result.
func (c *Controller) Pipe() (net.Conn, <-chan error) {
	client, server := net.Pipe()
	done := make(chan error, 1)
	goutils.PanicCapturingGo(func() {
		done <- c.Serve(server)
	})
	return client, done
}

// ListenAndServe accepts connections on listener and serves them one at a time until ctx is done.
func (c *Controller) ListenAndServe(ctx context.Context, listener net.Listener) error {
	goutils.PanicCapturingGo(func() {
		<-ctx.Done()
		goutils.UncheckedError(listener.Close())
	})
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accepting controller connection")
		}
		c.logger.Infow("fake controller accepted connection", "remote", conn.RemoteAddr())
		if err := c.Serve(conn); err != nil {
			c.logger.Warnw("fake controller connection ended", "error", err)
		}
	}
}
