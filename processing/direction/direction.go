// Package direction implements the processing module that asks a perception model which way to
// drive. Every failure yields the stop direction.
package direction

import (
	"context"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/e2e-ad/rover/config"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/perception"
	"github.com/e2e-ad/rover/processing"
	"github.com/e2e-ad/rover/sensordata"
	"github.com/e2e-ad/rover/utils"
)

// ModuleName is the registered type of this module.
const ModuleName = "direction"

// DefaultTimeout bounds one model call.
const DefaultTimeout = 10 * time.Second

func init() {
	processing.RegisterModule(ModuleName, func(
		ctx context.Context,
		deps processing.Dependencies,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (processing.Module, error) {
		var conf Config
		if err := attrs.Decode(&conf); err != nil {
			return nil, err
		}
		return New(deps.Model, conf, logger)
	})
}

// Config is the attribute set of the direction module.
type Config struct {
	// Camera selects which frame is sent to the model, left by default.
	Camera string `json:"camera"`
	// MaxWidth downsizes frames wider than this before querying. Zero sends frames as is.
	MaxWidth  int `json:"max_width"`
	TimeoutMs int `json:"timeout_ms"`
}

// Module asks a perception model for the driving direction.
type Module struct {
	model    perception.Model
	camera   sensordata.Camera
	maxWidth int
	timeout  time.Duration
	logger   logging.Logger
}

// New returns a direction module. A nil model is allowed and always yields stop.
func New(model perception.Model, conf Config, logger logging.Logger) (*Module, error) {
	cam, err := sensordata.ParseCamera(conf.Camera)
	if err != nil {
		return nil, err
	}
	if conf.MaxWidth < 0 || conf.TimeoutMs < 0 {
		return nil, errors.New("max_width and timeout_ms cannot be negative")
	}
	timeout := DefaultTimeout
	if conf.TimeoutMs > 0 {
		timeout = time.Duration(conf.TimeoutMs) * time.Millisecond
	}
	if model == nil {
		logger.Warn("no perception model configured, direction will always be stop")
	}
	return &Module{
		model:    model,
		camera:   cam,
		maxWidth: conf.MaxWidth,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Name returns the module type.
func (m *Module) Name() string {
	return ModuleName
}

// Process sets state.Direction. It never returns an error: anything that prevents a confident
// answer results in stop.
func (m *Module) Process(ctx context.Context, state *sensordata.FusedState) (*sensordata.FusedState, error) {
	dir, err := m.detect(ctx, state)
	if err != nil {
		m.logger.Warnw("direction detection failed, stopping", "cycle", state.Cycle, "error", err)
		dir = sensordata.DirectionStop
	}
	state.Direction = dir
	return state, nil
}

func (m *Module) detect(ctx context.Context, state *sensordata.FusedState) (dir sensordata.Direction, err error) {
	defer func() {
		if r := recover(); r != nil {
			dir, err = sensordata.DirectionNone, errors.Errorf("perception model panicked: %v", r)
		}
	}()
	if m.model == nil {
		return sensordata.DirectionNone, errors.New("no perception model")
	}
	frame := state.Frame(m.camera)
	if frame == nil {
		return sensordata.DirectionNone, errors.Errorf("no %s frame", m.camera)
	}
	if m.maxWidth > 0 && frame.Bounds().Dx() > m.maxWidth {
		frame = imaging.Resize(frame, m.maxWidth, 0, imaging.Linear)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	slowDone := utils.SlowLogger(ctx, nil, "waiting for perception model", "cycle_id", state.CycleID.String(), m.logger)
	defer slowDone()

	dir, err = m.model.Direction(ctx, frame)
	if err != nil {
		return sensordata.DirectionNone, err
	}
	if !dir.Valid() {
		return sensordata.DirectionNone, errors.Wrapf(sensordata.ErrInvalidDirection, "%q", dir)
	}
	return dir, nil
}
