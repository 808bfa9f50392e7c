package processing

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"golang.org/x/time/rate"

	"github.com/e2e-ad/rover/camera"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/utils"
)

// Driver defaults.
const (
	DefaultIdleInterval = 10 * time.Millisecond
	DefaultErrorBackoff = 100 * time.Millisecond
)

// latencyWindow is how many recent cycle durations CycleLatency looks at.
const latencyWindow = 128

// A FrameTransform adjusts a frame pair before it enters the pipeline. ok is false when the pair
// should be dropped.
type FrameTransform interface {
	Transform(left, right image.Image) (image.Image, image.Image, bool)
}

// DriverOptions configures a Driver.
type DriverOptions struct {
	// IdleInterval is how long to wait when no frame pair is ready.
	IdleInterval time.Duration
	// ErrorBackoff is how long to wait after the frame source fails.
	ErrorBackoff time.Duration
	// MaxRate caps cycles per second. Zero means no cap.
	MaxRate float64
}

// DriverStats counts what the driver has done so far.
type DriverStats struct {
	Cycles       uint64
	Dropped      uint64
	SourceErrors uint64
}

// Driver pulls frame pairs from a source and feeds them through a pipeline until stopped.
type Driver struct {
	source    camera.FrameSource
	transform FrameTransform
	pipeline  *Pipeline
	opts      DriverOptions
	clock     clock.Clock
	limiter   *rate.Limiter
	logger    logging.Logger

	mu        sync.Mutex
	workers   utils.StoppableWorkers
	stats     DriverStats
	latencies []float64
	next      int
}

// NewDriver returns a stopped driver. A nil transform passes frames through and a nil clock uses
// the wall clock.
func NewDriver(
	source camera.FrameSource,
	transform FrameTransform,
	pipeline *Pipeline,
	opts DriverOptions,
	clk clock.Clock,
	logger logging.Logger,
) *Driver {
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdleInterval
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = DefaultErrorBackoff
	}
	if clk == nil {
		clk = clock.New()
	}
	d := &Driver{
		source:    source,
		transform: transform,
		pipeline:  pipeline,
		opts:      opts,
		clock:     clk,
		logger:    logger,
	}
	if opts.MaxRate > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(opts.MaxRate), 1)
	}
	return d
}

// Start launches the loop. Calling Start on a running driver does nothing.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.workers != nil {
		return
	}
	d.workers = utils.NewStoppableWorkersWithContext(ctx, d.run)
}

// Stop cancels the loop and waits for the cycle in progress to finish.
func (d *Driver) Stop() {
	d.mu.Lock()
	workers := d.workers
	d.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
}

// Stats returns a snapshot of the driver counters.
func (d *Driver) Stats() DriverStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Driver) run(ctx context.Context) {
	d.logger.Debugw("frame processing loop started",
		"idle_interval", d.opts.IdleInterval, "error_backoff", d.opts.ErrorBackoff, "max_rate", d.opts.MaxRate)
	defer d.logger.Debug("frame processing loop stopped")
	for ctx.Err() == nil {
		d.step(ctx)
	}
}

func (d *Driver) step(ctx context.Context) {
	left, right, ok, err := d.source.Frames(ctx)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		d.count(func(s *DriverStats) { s.SourceErrors++ })
		d.logger.Warnw("error in frame processing loop", "error", err)
		d.sleep(ctx, d.opts.ErrorBackoff)
		return
	case !ok:
		d.sleep(ctx, d.opts.IdleInterval)
		return
	}

	if d.transform != nil {
		if left, right, ok = d.transform.Transform(left, right); !ok {
			d.count(func(s *DriverStats) { s.Dropped++ })
			d.logger.Debug("frame pair dropped by transform")
			d.sleep(ctx, d.opts.IdleInterval)
			return
		}
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return
		}
	}
	start := d.clock.Now()
	if _, err := d.pipeline.ProcessAndUpdate(ctx, left, right); err != nil {
		return
	}
	d.recordCycle(d.clock.Since(start))
}

func (d *Driver) recordCycle(took time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.Cycles++
	if len(d.latencies) < latencyWindow {
		d.latencies = append(d.latencies, float64(took))
		return
	}
	d.latencies[d.next] = float64(took)
	d.next = (d.next + 1) % latencyWindow
}

// CycleLatency returns the median and 95th percentile duration of the most recent cycles, or
// zeros before the first cycle.
func (d *Driver) CycleLatency() (p50, p95 time.Duration) {
	d.mu.Lock()
	samples := append([]float64(nil), d.latencies...)
	d.mu.Unlock()
	if len(samples) == 0 {
		return 0, 0
	}
	median, err := stats.Median(samples)
	if err != nil {
		return 0, 0
	}
	high, err := stats.Percentile(samples, 95)
	if err != nil {
		return time.Duration(median), 0
	}
	return time.Duration(median), time.Duration(high)
}

func (d *Driver) count(fn func(*DriverStats)) {
	d.mu.Lock()
	fn(&d.stats)
	d.mu.Unlock()
}

func (d *Driver) sleep(ctx context.Context, dur time.Duration) {
	select {
	case <-ctx.Done():
	case <-d.clock.After(dur):
	}
}
