package navigation

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/e2e-ad/rover/channel"
	"github.com/e2e-ad/rover/hub"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/sensordata"
	"github.com/e2e-ad/rover/utils"
)

// DefaultDecisionInterval is the navigator's tick period when none is configured.
const DefaultDecisionInterval = 500 * time.Millisecond

// Options configures a Navigator.
type Options struct {
	DecisionInterval time.Duration
	Clock            clock.Clock
}

// Stats counts what the navigator has done so far.
type Stats struct {
	Ticks          uint64 `json:"ticks"`
	Sent           uint64 `json:"sent"`
	SendFailures   uint64 `json:"send_failures"`
	StrategyPanics uint64 `json:"strategy_panics"`
}

// Navigator periodically reads the latest state, asks its strategy for a command and sends it.
// It starts disabled: ticks do nothing until SetEnabled(true).
type Navigator struct {
	hub      *hub.Hub
	channel  channel.Channel
	strategy Strategy
	opts     Options
	logger   logging.Logger

	enabled     *atomic.Bool
	lastCommand *atomic.Pointer[sensordata.Command]

	ticks          *atomic.Uint64
	sent           *atomic.Uint64
	sendFailures   *atomic.Uint64
	strategyPanics *atomic.Uint64

	// tickMu is held from a tick's enabled check through its send, and while autonomy is turned
	// off and the stop command sent, so no tick command can follow that stop.
	tickMu sync.Mutex

	mu      sync.Mutex
	workers utils.StoppableWorkers
	stopped bool
}

// NewNavigator returns a disabled, not yet started navigator.
func NewNavigator(
	h *hub.Hub,
	ch channel.Channel,
	strategy Strategy,
	opts Options,
	logger logging.Logger,
) *Navigator {
	if opts.DecisionInterval <= 0 {
		opts.DecisionInterval = DefaultDecisionInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Navigator{
		hub:            h,
		channel:        ch,
		strategy:       strategy,
		opts:           opts,
		logger:         logger,
		enabled:        atomic.NewBool(false),
		lastCommand:    atomic.NewPointer[sensordata.Command](nil),
		ticks:          atomic.NewUint64(0),
		sent:           atomic.NewUint64(0),
		sendFailures:   atomic.NewUint64(0),
		strategyPanics: atomic.NewUint64(0),
	}
}

// Start launches the decision loop. It does nothing once started or stopped.
func (n *Navigator) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped || n.workers != nil {
		return
	}
	n.logger.Infow("navigator started", "decision_interval", n.opts.DecisionInterval)
	n.workers = utils.NewStoppableWorkers(n.run)
}

// SetEnabled turns autonomous driving on or off. Disabling this way does not send anything; use
// Disable to also stop the robot.
func (n *Navigator) SetEnabled(enabled bool) {
	if n.enabled.Swap(enabled) != enabled {
		n.logger.Infow("autonomy changed", "enabled", enabled)
	}
}

// Disable turns autonomy off and sends a stop command. A tick already past its enabled check
// finishes sending first.
func (n *Navigator) Disable(ctx context.Context) error {
	n.tickMu.Lock()
	defer n.tickMu.Unlock()
	n.SetEnabled(false)
	return n.send(ctx, sensordata.StopCommand)
}

// Toggle flips autonomy and returns the new setting. Turning it off also sends a stop command, as
// Disable does.
func (n *Navigator) Toggle(ctx context.Context) (bool, error) {
	n.tickMu.Lock()
	defer n.tickMu.Unlock()
	enabled := !n.enabled.Toggle()
	n.logger.Infow("autonomy changed", "enabled", enabled)
	if enabled {
		return true, nil
	}
	return false, n.send(ctx, sensordata.StopCommand)
}

// Enabled reports whether autonomy is on.
func (n *Navigator) Enabled() bool {
	return n.enabled.Load()
}

// LastCommand returns the most recent command the channel accepted.
func (n *Navigator) LastCommand() (sensordata.Command, bool) {
	cmd := n.lastCommand.Load()
	if cmd == nil {
		return sensordata.Command{}, false
	}
	return *cmd, true
}

// Stats returns a snapshot of the counters.
func (n *Navigator) Stats() Stats {
	return Stats{
		Ticks:          n.ticks.Load(),
		Sent:           n.sent.Load(),
		SendFailures:   n.sendFailures.Load(),
		StrategyPanics: n.strategyPanics.Load(),
	}
}

// Stop ends the decision loop, waits for a tick in progress, disables autonomy and sends a single
// stop command. Only the first call does anything.
func (n *Navigator) Stop(ctx context.Context) error {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return nil
	}
	n.stopped = true
	workers := n.workers
	n.mu.Unlock()

	if workers != nil {
		workers.Stop()
	}
	if err := n.Disable(ctx); err != nil {
		return errors.Wrap(err, "failed to send stop command")
	}
	n.logger.Info("navigator stopped")
	return nil
}

func (n *Navigator) run(ctx context.Context) {
	ticker := n.opts.Clock.Ticker(n.opts.DecisionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}
		n.tick(ctx)
	}
}

func (n *Navigator) tick(ctx context.Context) {
	n.tickMu.Lock()
	defer n.tickMu.Unlock()
	n.ticks.Inc()
	state, ok := n.hub.Latest()
	if !ok || !n.enabled.Load() {
		return
	}
	cmd := n.decide(state).Clamp()
	if err := n.send(ctx, cmd); err != nil && ctx.Err() == nil {
		n.logger.Warnw("failed to send command", "left", cmd.Left, "right", cmd.Right, "error", err)
	}
}

func (n *Navigator) decide(state *sensordata.FusedState) (cmd sensordata.Command) {
	defer func() {
		if r := recover(); r != nil {
			n.strategyPanics.Inc()
			n.logger.Errorw("navigation strategy panicked, stopping", "cycle", state.Cycle, "panic", r)
			cmd = sensordata.StopCommand
		}
	}()
	return n.strategy.Decide(state)
}

func (n *Navigator) send(ctx context.Context, cmd sensordata.Command) error {
	if err := n.channel.Send(ctx, cmd.Left, cmd.Right); err != nil {
		n.sendFailures.Inc()
		return err
	}
	n.sent.Inc()
	n.lastCommand.Store(&cmd)
	n.logger.Debugw("sent command", "left", cmd.Left, "right", cmd.Right)
	return nil
}
