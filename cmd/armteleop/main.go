// Package main runs the arm teleoperation controller.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/armteleop/config"
	"go.viam.com/armteleop/control"
	"go.viam.com/armteleop/controller/fake"
	"go.viam.com/armteleop/intent"
	"go.viam.com/armteleop/kinematics"
	"go.viam.com/armteleop/logging"
	"go.viam.com/armteleop/transport"
	"go.viam.com/armteleop/utils"
	"go.viam.com/armteleop/web"
	"go.viam.com/armteleop/workspace"
)

const (
	// Flags.
	flagConfig         = "config"
	flagDebug          = "debug"
	flagLogFile        = "log-file"
	flagMode           = "mode"
	flagAddress        = "address"
	flagListen         = "listen"
	flagFakeController = "fake-controller"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "armteleop",
		Usage: "drive a two link arm from a browser joystick or a job queue",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "JSON or YAML config file; defaults are used when omitted",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "log at debug level",
			},
			&cli.PathFlag{
				Name:  flagLogFile,
				Usage: "also write logs to this file, rotating it as it grows",
			},
			&cli.StringFlag{
				Name:  flagMode,
				Usage: "intent source, joystick or jobs; overrides the config",
			},
			&cli.StringFlag{
				Name:  flagAddress,
				Usage: "controller address, host:port or serial:///dev/ttyX; overrides the config",
			},
			&cli.StringFlag{
				Name:  flagListen,
				Usage: "address for the operator web endpoint; overrides the config",
			},
			&cli.BoolFlag{
				Name:  flagFakeController,
				Usage: "run against a simulated controller instead of hardware",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	var logger logging.Logger
	switch {
	case c.Path(flagLogFile) != "":
		logger = logging.NewRotatingLogger("armteleop", c.Path(flagLogFile), c.Bool(flagDebug))
	case c.Bool(flagDebug):
		logger = logging.NewDebugLogger("armteleop")
	default:
		logger = logging.NewLogger("armteleop")
	}
	logging.ReplaceGlobal(logger)
	defer func() {
		// Syncing stdout fails on some terminals.
		_ = logger.Sync()
	}()

	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, cfg, c.Bool(flagFakeController), logger)
}

func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg := config.Default()
	if path := c.Path(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagMode) {
		cfg.Mode = config.Mode(c.String(flagMode))
	}
	if c.IsSet(flagAddress) {
		cfg.Controller.Address = c.String(flagAddress)
	}
	if c.IsSet(flagListen) {
		cfg.Web.Listen = c.String(flagListen)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Config")
	}
	return cfg, nil
}

// run connects to the controller and drives it until ctx is done or the connection fails. The
// controller is always sent SHUTDOWN once the loop has stopped.
func run(ctx context.Context, cfg *config.Config, fakeController bool, logger logging.Logger) (err error) {
	workers := utils.NewStoppableWorkersWithContext(ctx)
	defer workers.Stop()

	if fakeController {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return errors.Wrap(err, "starting fake controller")
		}
		sim := fake.New(fake.Options{ReadyToken: cfg.Controller.ReadyToken}, logger.Sublogger("fake"))
		workers.AddWorkers(func(ctx context.Context) {
			if err := sim.ListenAndServe(ctx, listener); err != nil {
				logger.Errorw("fake controller stopped", "error", err)
			}
		})
		cfg.Controller.Address = listener.Addr().String()
	}

	solver, err := kinematics.NewSolver(kinematics.Geometry{L1: cfg.Arm.L1, L2: cfg.Arm.L2, Offset: cfg.Arm.Offset})
	if err != nil {
		return err
	}
	mapper := workspace.NewMapper(cfg.Loop.Sensitivity(), cfg.Deadzone.Rect())

	var source intent.Source
	webOpts := web.Options{}
	switch cfg.Mode {
	case config.ModeJobs:
		jobs := intent.NewJobQueue(cfg.Loop.JobQueueSize)
		source, webOpts.Jobs = jobs, jobs
	default:
		js := intent.NewJoystick()
		source, webOpts.Joystick = js, js
	}

	conn, err := transport.Dial(ctx, clock.New(), logger.Sublogger("transport"), cfg.Controller.Address,
		cfg.Controller.BaudRate, transport.RetryPolicy{
			Attempts: cfg.Controller.DialAttempts,
			Backoff:  cfg.Controller.DialBackoff,
			Timeout:  cfg.Controller.DialTimeout,
		})
	if err != nil {
		return err
	}

	loop, err := control.NewLoop(
		control.Config{
			Period:        cfg.Loop.Period,
			ReadyToken:    cfg.Controller.ReadyToken,
			InitialTarget: cfg.Loop.InitialTarget(),
			Limits:        kinematics.Limits{JointA: cfg.Arm.JointALimit, JointB: cfg.Arm.JointBLimit},
		},
		clock.New(),
		solver,
		mapper,
		source,
		conn,
		logger.Sublogger("control"),
	)
	if err != nil {
		return multierr.Combine(err, conn.Close())
	}
	defer func() {
		err = multierr.Combine(err, loop.Close())
	}()

	webOpts.Status = loop.Status
	server, err := web.NewServer(webOpts, logger.Sublogger("web"))
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", cfg.Web.Listen)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", cfg.Web.Listen)
	}
	workers.AddWorkers(func(ctx context.Context) {
		if err := server.Serve(ctx, listener); err != nil {
			logger.Errorw("web server stopped", "error", err)
		}
	})

	logger.Infow("starting", "mode", cfg.Mode, "controller", cfg.Controller.Address, "sensitivity", cfg.Loop.Sensitivity())
	return loop.Run(ctx)
}
