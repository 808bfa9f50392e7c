package processing

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/e2e-ad/rover/hub"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/sensordata"
)

// ErrPipelineRunning is returned when registering a module after the first cycle ran.
var ErrPipelineRunning = errors.New("cannot register modules once the pipeline has started")

// Pipeline runs its registered modules, in registration order, over each frame pair and
// publishes the result to the hub.
type Pipeline struct {
	hub    *hub.Hub
	logger logging.Logger

	mu      sync.Mutex
	modules []Module
	started bool

	// cycleSem admits one cycle at a time; the next cycle's state is only published after the
	// current chain completes.
	cycleSem *semaphore.Weighted
	cycle    uint64
}

// NewPipeline returns a pipeline with no modules that publishes to h.
func NewPipeline(h *hub.Hub, logger logging.Logger) *Pipeline {
	return &Pipeline{
		hub:      h,
		logger:   logger,
		cycleSem: semaphore.NewWeighted(1),
	}
}

// Register appends a module. Modules run in the order they were registered.
func (p *Pipeline) Register(module Module) error {
	if module == nil {
		return errors.New("cannot register a nil module")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errors.Wrap(ErrPipelineRunning, module.Name())
	}
	p.modules = append(p.modules, module)
	return nil
}

// Modules returns the names of the registered modules in execution order.
func (p *Pipeline) Modules() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.modules))
	for _, m := range p.modules {
		names = append(names, m.Name())
	}
	return names
}

func (p *Pipeline) start() []Module {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
	return p.modules
}

// ProcessAndUpdate builds a fresh state from the frame pair, runs every module over it and
// publishes the result. A module that fails or panics is logged and skipped: the next module
// receives the state the failing module was given. The only error returned is ctx's, when it is
// cancelled while waiting for the previous cycle to finish.
func (p *Pipeline) ProcessAndUpdate(ctx context.Context, left, right image.Image) (*sensordata.FusedState, error) {
	if err := p.cycleSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.cycleSem.Release(1)

	modules := p.start()
	p.cycle++
	state := sensordata.NewFusedState(left, right)
	state.Cycle = p.cycle

	start := time.Now()
	for _, module := range modules {
		// Each module works on its own copy so a failure part way through never leaves half
		// written detections behind.
		out, err := runModule(ctx, module, state.Clone())
		if err != nil {
			p.logger.Errorw("perception module failed, skipping it for this cycle",
				"module", module.Name(), "cycle", state.Cycle, "cycle_id", state.CycleID, "error", err)
			continue
		}
		state = out
	}

	p.hub.Publish(state)
	p.logger.Debugw("published fused state",
		"cycle", state.Cycle, "direction", state.Direction, "duration", time.Since(start))
	return state, nil
}

func runModule(
	ctx context.Context,
	module Module,
	state *sensordata.FusedState,
) (out *sensordata.FusedState, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.Errorf("panic: %v", r)
		}
	}()
	out, err = module.Process(ctx, state)
	if err == nil && out == nil {
		err = errors.New("module returned no state")
	}
	return out, err
}
