package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	goutils "go.viam.com/utils"

	"go.viam.com/armteleop/logging"
)

// Intervals between SlowLogger warnings. The last one repeats.
var slowLogIntervals = []time.Duration{2 * time.Second, 3 * time.Second, 5 * time.Second}

// SlowLogger starts a goroutine that warns every few seconds until the returned function is called
// or ctx is done. Use it around operations that block on a peer.
func SlowLogger(ctx context.Context, clk clock.Clock, msg, fieldName string, fieldVal interface{}, logger logging.Logger) func() {
	ctxWithCancel, cancel := context.WithCancel(ctx)
	startTime := clk.Now()
	timer := clk.Timer(slowLogIntervals[0])
	done := make(chan struct{})

	goutils.PanicCapturingGo(func() {
		defer close(done)
		defer timer.Stop()
		for next := 1; ; next++ {
			select {
			case <-timer.C:
				elapsed := clk.Since(startTime).Round(time.Second).String()
				timer.Reset(slowLogIntervals[min(next, len(slowLogIntervals)-1)])
				logger.Warnw(msg, fieldName, fieldVal, "time_elapsed", elapsed)
			case <-ctxWithCancel.Done():
				return
			}
		}
	})
	return func() {
		cancel()
		<-done
	}
}
