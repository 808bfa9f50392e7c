package processing

import (
	"context"
	"image"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.viam.com/test"

	"github.com/e2e-ad/rover/config"
	"github.com/e2e-ad/rover/hub"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/sensordata"
	"github.com/e2e-ad/rover/testutils/inject"
)

func frames() (image.Image, image.Image) {
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func TestPipelineRunsModulesInRegistrationOrder(t *testing.T) {
	logger := logging.NewTestLogger(t)
	h := hub.New()
	p := NewPipeline(h, logger)

	setX := NewModuleFunc("a", func(ctx context.Context, s *sensordata.FusedState) (*sensordata.FusedState, error) {
		s.LeftDetections = append(s.LeftDetections, sensordata.Detection{Label: "x"})
		return s, nil
	})
	readX := NewModuleFunc("b", func(ctx context.Context, s *sensordata.FusedState) (*sensordata.FusedState, error) {
		if len(s.LeftDetections) == 1 && s.LeftDetections[0].Label == "x" {
			s.Direction = sensordata.DirectionForward
		}
		return s, nil
	})
	test.That(t, p.Register(setX), test.ShouldBeNil)
	test.That(t, p.Register(readX), test.ShouldBeNil)
	test.That(t, p.Modules(), test.ShouldResemble, []string{"a", "b"})

	left, right := frames()
	state, err := p.ProcessAndUpdate(context.Background(), left, right)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state.Direction, test.ShouldEqual, sensordata.DirectionForward)
	test.That(t, state.Cycle, test.ShouldEqual, uint64(1))
	test.That(t, state.LeftFrame, test.ShouldEqual, left)

	latest, ok := h.Latest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, latest, test.ShouldEqual, state)
}

func TestPipelineSkipsFailingModules(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	h := hub.New()
	p := NewPipeline(h, logger)

	var afterRuns atomic.Int32
	failing := &inject.Module{
		ModuleName: "failing",
		ProcessFunc: func(ctx context.Context, s *sensordata.FusedState) (*sensordata.FusedState, error) {
			s.Direction = sensordata.DirectionLeft
			s.RightDetections = append(s.RightDetections, sensordata.Detection{Label: "half written"})
			return nil, errors.New("model unreachable")
		},
	}
	panicking := &inject.Module{
		ModuleName: "panicking",
		ProcessFunc: func(ctx context.Context, s *sensordata.FusedState) (*sensordata.FusedState, error) {
			panic("boom")
		},
	}
	nilState := &inject.Module{
		ModuleName: "nil",
		ProcessFunc: func(ctx context.Context, s *sensordata.FusedState) (*sensordata.FusedState, error) {
			return nil, nil
		},
	}
	after := &inject.Module{
		ModuleName: "after",
		ProcessFunc: func(ctx context.Context, s *sensordata.FusedState) (*sensordata.FusedState, error) {
			afterRuns.Add(1)
			return s, nil
		},
	}
	for _, m := range []Module{failing, panicking, nilState, after} {
		test.That(t, p.Register(m), test.ShouldBeNil)
	}

	for i := 1; i <= 3; i++ {
		left, right := frames()
		state, err := p.ProcessAndUpdate(context.Background(), left, right)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, state.Direction, test.ShouldEqual, sensordata.DirectionNone)
		test.That(t, state.RightDetections, test.ShouldBeEmpty)
		test.That(t, afterRuns.Load(), test.ShouldEqual, int32(i))
	}

	failures := logs.FilterMessage("perception module failed, skipping it for this cycle")
	test.That(t, failures.Len(), test.ShouldEqual, 9)
	test.That(t, failures.FilterField(zap.String("module", "panicking")).Len(), test.ShouldEqual, 3)

	stats := h.Stats()
	test.That(t, stats.Publishes, test.ShouldEqual, uint64(3))
}

func TestPipelineRegisterAfterStart(t *testing.T) {
	logger := logging.NewTestLogger(t)
	p := NewPipeline(hub.New(), logger)
	test.That(t, p.Register(nil), test.ShouldNotBeNil)

	left, right := frames()
	_, err := p.ProcessAndUpdate(context.Background(), left, right)
	test.That(t, err, test.ShouldBeNil)

	err = p.Register(&inject.Module{ModuleName: "late"})
	test.That(t, errors.Is(err, ErrPipelineRunning), test.ShouldBeTrue)
	test.That(t, p.Modules(), test.ShouldBeEmpty)
}

func TestPipelineCancelledWhileWaiting(t *testing.T) {
	logger := logging.NewTestLogger(t)
	h := hub.New()
	p := NewPipeline(h, logger)

	entered := make(chan struct{})
	release := make(chan struct{})
	test.That(t, p.Register(&inject.Module{
		ModuleName: "slow",
		ProcessFunc: func(ctx context.Context, s *sensordata.FusedState) (*sensordata.FusedState, error) {
			close(entered)
			<-release
			return s, nil
		},
	}), test.ShouldBeNil)

	done := make(chan error, 1)
	go func() {
		left, right := frames()
		_, err := p.ProcessAndUpdate(context.Background(), left, right)
		done <- err
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	left, right := frames()
	_, err := p.ProcessAndUpdate(ctx, left, right)
	test.That(t, err, test.ShouldBeError, context.Canceled)

	close(release)
	test.That(t, <-done, test.ShouldBeNil)
	test.That(t, h.Stats().Publishes, test.ShouldEqual, uint64(1))
}

func TestRegistry(t *testing.T) {
	logger := logging.NewTestLogger(t)
	RegisterModule("test-passthrough", func(
		ctx context.Context, deps Dependencies, attrs config.AttributeMap, logger logging.Logger,
	) (Module, error) {
		if attrs.Has("fail") {
			return nil, errors.New("bad attributes")
		}
		return &inject.Module{ModuleName: "test-passthrough"}, nil
	})
	test.That(t, RegisteredModules(), test.ShouldContain, "test-passthrough")
	test.That(t, func() {
		RegisterModule("test-passthrough", func(
			context.Context, Dependencies, config.AttributeMap, logging.Logger,
		) (Module, error) {
			return nil, nil
		})
	}, test.ShouldPanic)

	m, err := NewModule(context.Background(), Dependencies{}, "test-passthrough", nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, "test-passthrough")

	_, err = NewModule(context.Background(), Dependencies{}, "test-passthrough", config.AttributeMap{"fail": true}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad attributes")

	_, err = NewModule(context.Background(), Dependencies{}, "nope", nil, logger)
	test.That(t, errors.Is(err, ErrUnknownModule), test.ShouldBeTrue)
}
