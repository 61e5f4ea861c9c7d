package transport

import (
	"context"
	"io"
	"net"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/armteleop/logging"
	"go.viam.com/armteleop/serial"
)

// SerialScheme prefixes controller addresses that name a local serial device.
const SerialScheme = "serial://"

// ErrRetriesExhausted is returned once every dial attempt has failed.
var ErrRetriesExhausted = errors.New("exhausted connection attempts")

// RetryPolicy bounds how hard Dial tries to reach the controller.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// Timeout applies to each TCP attempt. Zero means no timeout.
	Timeout time.Duration
}

// Retry calls fn up to policy.Attempts times, waiting policy.Backoff between failures. It returns
// early if ctx is cancelled. All attempt errors are returned alongside ErrRetriesExhausted.
func Retry(
	ctx context.Context,
	clk clock.Clock,
	logger logging.Logger,
	policy RetryPolicy,
	fn func(ctx context.Context) error,
) error {
	var errs error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return multierr.Combine(err, errs)
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		errs = multierr.Append(errs, err)
		logger.Warnw("connection attempt failed", "attempt", attempt, "of", policy.Attempts, "error", err)
		if attempt == policy.Attempts {
			break
		}

		timer := clk.Timer(policy.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return multierr.Combine(ctx.Err(), errs)
		case <-timer.C:
		}
	}
	return multierr.Combine(ErrRetriesExhausted, errs)
}

// Dial connects to the controller at address. A "serial://" address opens the named device at
// baudRate, anything else is dialed as TCP host:port.
func Dial(
	ctx context.Context,
	clk clock.Clock,
	logger logging.Logger,
	address string,
	baudRate int,
	policy RetryPolicy,
) (*Conn, error) {
	var rwc io.ReadWriteCloser
	err := Retry(ctx, clk, logger, policy, func(ctx context.Context) error {
		var err error
		rwc, err = open(ctx, address, baudRate, policy.Timeout)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to controller at %s", address)
	}
	logger.Infow("connected to controller", "address", address)
	return NewConn(rwc, logger), nil
}

func open(ctx context.Context, address string, baudRate int, timeout time.Duration) (io.ReadWriteCloser, error) {
	if path, ok := strings.CutPrefix(address, SerialScheme); ok {
		return serial.Open(path, serial.DefaultOptions(baudRate))
	}
	dialer := net.Dialer{Timeout: timeout}
	return dialer.DialContext(ctx, "tcp", address)
}
