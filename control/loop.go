package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/armteleop/intent"
	"go.viam.com/armteleop/kinematics"
	"go.viam.com/armteleop/logging"
	"go.viam.com/armteleop/transport"
	"go.viam.com/armteleop/utils"
	"go.viam.com/armteleop/workspace"
)

// Controller is the remote motor controller as seen by the loop. Every command is answered by
// exactly one acknowledgement. *transport.Conn implements it.
type Controller interface {
	AwaitReady(token string) error
	SendMotor(angleA, angleB float64) error
	SendGrabber(closed bool) error
	ReadAck() (transport.Ack, error)
	Shutdown() error
}

// Config holds the loop's fixed parameters.
type Config struct {
	Period        time.Duration
	ReadyToken    string
	InitialTarget r2.Point
	Limits        kinematics.Limits
}

// Loop streams motor commands to one controller at a fixed period. Run owns the target point and
// gripper state; other goroutines only call Stop and Status.
type Loop struct {
	cfg    Config
	clock  clock.Clock
	solver *kinematics.Solver
	mapper *workspace.Mapper
	source intent.Source
	ctrl   Controller
	logger logging.Logger

	state    atomic.Int32
	stopping atomic.Bool

	target   r2.Point
	grabbing bool

	statusMu sync.Mutex
	status   Status
}

// NewLoop returns a loop in StateAwaitingReady.
func NewLoop(
	cfg Config,
	clk clock.Clock,
	solver *kinematics.Solver,
	mapper *workspace.Mapper,
	source intent.Source,
	ctrl Controller,
	logger logging.Logger,
) (*Loop, error) {
	if cfg.Period <= 0 {
		return nil, errors.New("loop period must be positive")
	}
	if cfg.ReadyToken == "" {
		return nil, errors.New("ready token must not be empty")
	}
	l := &Loop{
		cfg:    cfg,
		clock:  clk,
		solver: solver,
		mapper: mapper,
		source: source,
		ctrl:   ctrl,
		logger: logger,
		target: cfg.InitialTarget,
	}
	l.status = Status{State: StateAwaitingReady, Target: cfg.InitialTarget, UpdatedAt: clk.Now()}
	return l, nil
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
	l.statusMu.Lock()
	l.status.State = s
	l.statusMu.Unlock()
}

// Status returns a snapshot of the loop.
func (l *Loop) Status() Status {
	l.statusMu.Lock()
	defer l.statusMu.Unlock()
	return l.status
}

// Stop asks Run to return after the tick in progress. It does not wait.
func (l *Loop) Stop() {
	l.stopping.Store(true)
}

// Run waits for the controller to report ready and then ticks until Stop is called, ctx is done,
// or the controller connection fails. It does not shut the controller down; call Close once Run
// has returned.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Infow("waiting for controller", "token", l.cfg.ReadyToken)
	stopSlowLog := utils.SlowLogger(ctx, l.clock, "still waiting for controller", "token", l.cfg.ReadyToken, l.logger)
	err := l.ctrl.AwaitReady(l.cfg.ReadyToken)
	stopSlowLog()
	if err != nil {
		return err
	}
	l.setState(StateRunning)
	l.logger.Infow("control loop running", "period", l.cfg.Period, "target", l.target)

	for !l.stopping.Load() && ctx.Err() == nil {
		start := l.clock.Now()
		if err := l.tick(); err != nil {
			l.logger.Errorw("control loop stopped", "error", err)
			return err
		}

		elapsed := l.clock.Since(start)
		if elapsed > l.cfg.Period {
			l.logger.Warnw("control tick overran its period", "elapsed", elapsed, "period", l.cfg.Period)
			l.statusMu.Lock()
			l.status.Overruns++
			l.statusMu.Unlock()
			continue
		}
		l.sleep(ctx, l.cfg.Period-elapsed)
	}
	l.logger.Info("control loop stopping")
	return nil
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) {
	timer := l.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// tick handles one intent. A gripper change takes the whole tick; otherwise the target is moved
// and, if it moved at all, a motor command is sent.
func (l *Loop) tick() error {
	defer func() {
		l.statusMu.Lock()
		l.status.Ticks++
		l.status.UpdatedAt = l.clock.Now()
		l.statusMu.Unlock()
	}()

	in, err := l.source.Next()
	if err != nil {
		if errors.Is(err, intent.ErrMalformedIntent) {
			l.logger.Warnw("skipping malformed intent", "error", err)
			return nil
		}
		return errors.Wrap(err, "reading intent")
	}

	if in.CarriesGrip() && in.Grabbing != l.grabbing {
		if err := l.exchange(func() error { return l.ctrl.SendGrabber(in.Grabbing) }); err != nil {
			return err
		}
		l.grabbing = in.Grabbing
		l.statusMu.Lock()
		l.status.Grabbing = in.Grabbing
		l.statusMu.Unlock()
		return nil
	}

	switch in.Kind {
	case intent.KindJog:
		l.target = l.mapper.MapIntent(in.Angle, in.Magnitude, l.target)
	case intent.KindMoveTo:
		l.target = l.mapper.MoveTo(l.target, in.Point)
	case intent.KindIdle, intent.KindGrip:
		return nil
	}

	sol := l.solver.Solve(l.target, l.cfg.Limits)
	if !sol.Reachable {
		l.logger.Debugw("target clamped to reachable pose", "requested", l.target, "snapped", sol.Target)
	}
	l.target = sol.Target
	l.statusMu.Lock()
	l.status.Target = sol.Target
	l.status.AngleA = sol.AngleA
	l.status.AngleB = sol.AngleB
	l.status.Reachable = sol.Reachable
	l.statusMu.Unlock()

	return l.exchange(func() error { return l.ctrl.SendMotor(sol.AngleA, sol.AngleB) })
}

// exchange sends one command and consumes its acknowledgement.
func (l *Loop) exchange(send func() error) error {
	if err := send(); err != nil {
		return err
	}
	ack, err := l.ctrl.ReadAck()
	if err != nil {
		return errors.Wrap(err, "reading acknowledgement")
	}
	if !ack.OK() {
		l.logger.Warnw("unexpected acknowledgement from controller", "line", ack.Line)
	}
	l.statusMu.Lock()
	l.status.LastAck = ack.Line
	l.statusMu.Unlock()
	return nil
}

// Close tells the controller to shut down and closes the connection. Call it after Run returns,
// whether or not Run succeeded.
func (l *Loop) Close() error {
	l.Stop()
	l.setState(StateShuttingDown)
	l.logger.Info("shutting down controller")
	return l.ctrl.Shutdown()
}
