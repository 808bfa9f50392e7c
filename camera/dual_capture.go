package camera

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/utils"
)

// DualCaptureOptions configures a DualCapture.
type DualCaptureOptions struct {
	// PollInterval is the delay between two reads of the same camera.
	PollInterval time.Duration
	Clock        clock.Clock
}

type latestFrame struct {
	img   image.Image
	err   error
	fresh bool
}

// DualCapture polls a left and a right ImageSource in the background and hands out the most
// recent pair.
type DualCapture struct {
	sources [2]ImageSource
	logger  logging.Logger

	mu     sync.Mutex
	frames [2]latestFrame

	workers utils.StoppableWorkers
}

// NewDualCapture starts one poll worker per camera.
func NewDualCapture(left, right ImageSource, opts DualCaptureOptions, logger logging.Logger) *DualCapture {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	dc := &DualCapture{
		sources: [2]ImageSource{left, right},
		logger:  logger,
	}
	dc.workers = utils.NewStoppableWorkers(
		func(ctx context.Context) { dc.poll(ctx, 0, opts) },
		func(ctx context.Context) { dc.poll(ctx, 1, opts) },
	)
	return dc
}

func (dc *DualCapture) poll(ctx context.Context, idx int, opts DualCaptureOptions) {
	name := [2]string{"left", "right"}[idx]
	for {
		if ctx.Err() != nil {
			return
		}
		img, err := dc.sources[idx].Read(ctx)
		if err != nil && ctx.Err() == nil {
			dc.logger.Debugw("failed to read camera", "camera", name, "error", err)
		}

		dc.mu.Lock()
		if err != nil {
			dc.frames[idx].err = err
		} else {
			dc.frames[idx] = latestFrame{img: img, fresh: true}
		}
		dc.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-opts.Clock.After(opts.PollInterval):
		}
	}
}

// Frames returns the latest pair once both cameras have produced a frame and at least one of them
// has a frame not handed out before. When no such pair exists and a camera's last read failed,
// that error is returned.
func (dc *DualCapture) Frames(ctx context.Context) (image.Image, image.Image, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, false, err
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()

	left, right := &dc.frames[0], &dc.frames[1]
	if left.img != nil && right.img != nil && (left.fresh || right.fresh) {
		left.fresh, right.fresh = false, false
		return left.img, right.img, true, nil
	}
	var errs error
	if left.err != nil {
		errs = multierr.Append(errs, errors.Wrap(left.err, "left camera"))
	}
	if right.err != nil {
		errs = multierr.Append(errs, errors.Wrap(right.err, "right camera"))
	}
	return nil, nil, false, errs
}

// Close stops polling and closes both sources.
func (dc *DualCapture) Close() error {
	dc.workers.Stop()
	return multierr.Combine(dc.sources[0].Close(), dc.sources[1].Close())
}
