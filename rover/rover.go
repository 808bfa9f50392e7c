// Package rover assembles the hub, pipeline, navigator, command channel, cameras and viewer from a
// config and owns their lifecycle.
package rover

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/e2e-ad/rover/camera"
	"github.com/e2e-ad/rover/camera/imagefile"
	"github.com/e2e-ad/rover/camera/snapshot"
	"github.com/e2e-ad/rover/channel"
	"github.com/e2e-ad/rover/channel/websocket"
	"github.com/e2e-ad/rover/config"
	"github.com/e2e-ad/rover/hub"
	"github.com/e2e-ad/rover/jobmanager"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/navigation"
	"github.com/e2e-ad/rover/perception"
	"github.com/e2e-ad/rover/perception/ollama"
	"github.com/e2e-ad/rover/processing"
	// register the built-in modules.
	_ "github.com/e2e-ad/rover/processing/direction"
	_ "github.com/e2e-ad/rover/processing/visualize"
	"github.com/e2e-ad/rover/render"
)

// StatusReportJob is the job type that logs a summary of the rover's activity.
const StatusReportJob = "status_report"

// Options overrides collaborators that are otherwise built from the config.
type Options struct {
	Channel channel.Channel
	Frames  camera.FrameSource
	Model   perception.Model
	Clock   clock.Clock
}

// Rover is a fully assembled autonomy stack.
type Rover struct {
	logger logging.Logger

	Hub       *hub.Hub
	Pipeline  *processing.Pipeline
	Driver    *processing.Driver
	Navigator *navigation.Navigator
	Channel   channel.Channel
	Frames    camera.FrameSource
	Model     perception.Model
	Renderer  *render.Server
	Jobs      *jobmanager.JobManager

	startEnabled bool
}

// New builds a rover from cfg.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Rover, error) {
	return NewWithOptions(ctx, cfg, Options{}, logger)
}

// NewWithOptions builds a rover from cfg, using any collaborator given in opts instead of the one
// cfg describes. Whatever was built is closed again when a later step fails.
func NewWithOptions(ctx context.Context, cfg *config.Config, opts Options, logger logging.Logger) (r *Rover, err error) {
	built := &Rover{
		logger:       logger,
		Hub:          hub.New(),
		startEnabled: cfg.Navigation.StartEnabled,
	}
	r = built
	defer func() {
		if err != nil {
			err = multierr.Combine(err, built.Close(context.Background()))
			r = nil
		}
	}()

	r.Model = opts.Model
	if r.Model == nil {
		client, err := ollama.NewClient(ollama.Config{
			URL:     cfg.Perception.URL,
			Model:   cfg.Perception.Model,
			Prompt:  cfg.Perception.Prompt,
			Timeout: cfg.Perception.Timeout(),
		}, logger.Sublogger("perception"))
		if err != nil {
			return nil, err
		}
		r.Model = client
	}

	r.Pipeline = processing.NewPipeline(r.Hub, logger.Sublogger("pipeline"))
	deps := processing.Dependencies{Model: r.Model}
	for _, conf := range cfg.Pipeline.Modules {
		module, err := processing.NewModule(ctx, deps, conf.Type, conf.Attributes, logger.Sublogger(conf.Type))
		if err != nil {
			return nil, err
		}
		if err := r.Pipeline.Register(module); err != nil {
			return nil, err
		}
	}

	strategy, err := navigation.NewStrategy(cfg.Navigation.Strategy.Type, cfg.Navigation.Strategy.Attributes)
	if err != nil {
		return nil, err
	}

	r.Channel = opts.Channel
	if r.Channel == nil {
		ws, err := websocket.Dial(ctx, cfg.Channel.URL, websocket.Options{WriteTimeout: cfg.Channel.WriteTimeout()},
			logger.Sublogger("channel"))
		if err != nil {
			return nil, err
		}
		r.Channel = ws
	}

	r.Frames = opts.Frames
	if r.Frames == nil {
		frames, err := newDualCapture(cfg, opts.Clock, logger.Sublogger("camera"))
		if err != nil {
			return nil, err
		}
		r.Frames = frames
	}

	cropper := &camera.Cropper{
		Left:  cfg.Cameras.LeftCrop.Rectangle(),
		Right: cfg.Cameras.RightCrop.Rectangle(),
	}
	r.Driver = processing.NewDriver(r.Frames, cropper, r.Pipeline, processing.DriverOptions{
		IdleInterval: cfg.Pipeline.IdleInterval(),
		ErrorBackoff: cfg.Pipeline.ErrorBackoff(),
		MaxRate:      cfg.Pipeline.MaxFPS,
	}, opts.Clock, logger.Sublogger("driver"))

	r.Navigator = navigation.NewNavigator(r.Hub, r.Channel, strategy, navigation.Options{
		DecisionInterval: cfg.Navigation.DecisionInterval(),
		Clock:            opts.Clock,
	}, logger.Sublogger("navigator"))

	if !cfg.Render.Disabled {
		r.Renderer = render.NewServer(r.Hub, r.Navigator, render.Options{
			Address:  cfg.Render.Address,
			Enriched: cfg.Render.Enriched,
			Pprof:    cfg.Render.Pprof,
			Modules:  r.Pipeline.Modules(),
		}, logger.Sublogger("render"))
	}

	if r.Jobs, err = jobmanager.New(logger); err != nil {
		return nil, err
	}
	for _, jc := range cfg.Jobs {
		if jc.Type != StatusReportJob {
			return nil, errors.Errorf("job %q: unknown type %q", jc.Name, jc.Type)
		}
		if err := r.Jobs.Add(jc.Name, jc.Schedule, r.reportStatus); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func newDualCapture(cfg *config.Config, clk clock.Clock, logger logging.Logger) (*camera.DualCapture, error) {
	left, err := newImageSource(cfg.Cameras.Left, cfg.Cameras.PollInterval(), logger.Sublogger("left"))
	if err != nil {
		return nil, errors.Wrap(err, "left camera")
	}
	right, err := newImageSource(cfg.Cameras.Right, cfg.Cameras.PollInterval(), logger.Sublogger("right"))
	if err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "right camera"), left.Close())
	}
	return camera.NewDualCapture(left, right, camera.DualCaptureOptions{
		PollInterval: cfg.Cameras.PollInterval(),
		Clock:        clk,
	}, logger), nil
}

// snapshotTimeout bounds one snapshot request relative to the poll interval.
const snapshotTimeout = 2 * time.Second

func newImageSource(conf config.ImageSource, poll time.Duration, logger logging.Logger) (camera.ImageSource, error) {
	switch conf.Type {
	case config.SourceSnapshot:
		src, err := snapshot.New(conf.URL, snapshotTimeout+poll, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceFile:
		src, err := imagefile.New(conf.Path)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, errors.Errorf("unknown image source type %q", conf.Type)
	}
}

// Start launches the driver, the navigator, the viewer and the scheduled jobs.
func (r *Rover) Start(ctx context.Context) error {
	r.Driver.Start(ctx)
	r.Navigator.Start()
	if r.startEnabled {
		r.Navigator.SetEnabled(true)
	}
	if r.Renderer != nil {
		if err := r.Renderer.Start(); err != nil {
			return err
		}
	}
	r.Jobs.Start()
	r.logger.Infow("rover started", "modules", r.Pipeline.Modules(), "autonomy", r.Navigator.Enabled())
	return nil
}

// Close shuts everything down: the viewer, then the navigator (which sends a final stop), then the
// command channel, the frame loop, the perception model and finally the cameras.
func (r *Rover) Close(ctx context.Context) error {
	var errs error
	if r.Jobs != nil {
		errs = multierr.Append(errs, r.Jobs.Shutdown())
	}
	if r.Renderer != nil {
		errs = multierr.Append(errs, r.Renderer.Close(ctx))
	}
	if r.Navigator != nil {
		errs = multierr.Append(errs, r.Navigator.Stop(ctx))
	}
	if r.Channel != nil {
		errs = multierr.Append(errs, r.Channel.Close())
	}
	if r.Driver != nil {
		r.Driver.Stop()
	}
	if r.Model != nil {
		errs = multierr.Append(errs, r.Model.Close())
	}
	if r.Frames != nil {
		errs = multierr.Append(errs, r.Frames.Close())
	}
	return errs
}

// ApplyLogConfig changes the log level at runtime. Other config changes need a restart.
func (r *Rover) ApplyLogConfig(conf logging.Config) error {
	if conf.Level == "" {
		conf.Level = logging.INFO.String()
	}
	level, err := logging.LevelFromString(conf.Level)
	if err != nil {
		return err
	}
	if level != r.logger.GetLevel() {
		r.logger.SetLevel(level)
		r.logger.Infow("log level changed", "level", level.String())
	}
	return nil
}

func (r *Rover) reportStatus(ctx context.Context) error {
	hubStats := r.Hub.Stats()
	driverStats := r.Driver.Stats()
	navStats := r.Navigator.Stats()
	p50, p95 := r.Driver.CycleLatency()
	fields := []interface{}{
		"publishes", hubStats.Publishes,
		"cycles", driverStats.Cycles,
		"dropped", driverStats.Dropped,
		"source_errors", driverStats.SourceErrors,
		"cycle_p50", p50,
		"cycle_p95", p95,
		"autonomy", r.Navigator.Enabled(),
		"ticks", navStats.Ticks,
		"sent", navStats.Sent,
		"send_failures", navStats.SendFailures,
	}
	if state, ok := r.Hub.Latest(); ok {
		fields = append(fields, "direction", state.Direction, "last_publish", hubStats.LastPublished.Format(time.RFC3339))
	}
	r.logger.Infow("status", fields...)
	return nil
}
