package navigation

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/e2e-ad/rover/config"
	"github.com/e2e-ad/rover/sensordata"
)

func stateWith(dir sensordata.Direction) *sensordata.FusedState {
	s := sensordata.NewFusedState(nil, nil)
	s.Direction = dir
	return s
}

func TestDirectionStrategy(t *testing.T) {
	for _, speeds := range []DirectionStrategy{{Forward: 1, Turn: 1}, {Forward: 0.6, Turn: 0.3}, {}} {
		s := speeds
		test.That(t, s.Decide(stateWith(sensordata.DirectionForward)), test.ShouldResemble,
			sensordata.Command{Left: s.Forward, Right: s.Forward})
		test.That(t, s.Decide(stateWith(sensordata.DirectionLeft)), test.ShouldResemble,
			sensordata.Command{Left: -s.Turn, Right: s.Turn})
		test.That(t, s.Decide(stateWith(sensordata.DirectionRight)), test.ShouldResemble,
			sensordata.Command{Left: s.Turn, Right: -s.Turn})
		test.That(t, s.Decide(stateWith(sensordata.DirectionStop)), test.ShouldResemble, sensordata.StopCommand)
		test.That(t, s.Decide(stateWith(sensordata.DirectionNone)), test.ShouldResemble, sensordata.StopCommand)
		test.That(t, s.Decide(stateWith(sensordata.Direction("backwards"))), test.ShouldResemble, sensordata.StopCommand)
		test.That(t, s.Decide(nil), test.ShouldResemble, sensordata.StopCommand)
	}
}

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy(DirectionStrategyName, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldResemble, &DirectionStrategy{Forward: 1, Turn: 1})

	s, err = NewStrategy(DirectionStrategyName, config.AttributeMap{"forward_speed": 0.5, "turn_speed": 0.25})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldResemble, &DirectionStrategy{Forward: 0.5, Turn: 0.25})

	_, err = NewStrategy(DirectionStrategyName, config.AttributeMap{"forward_speed": 1.5})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "forward_speed")

	_, err = NewStrategy(DirectionStrategyName, config.AttributeMap{"turn_speed": -0.1})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewStrategy("reinforcement", nil)
	test.That(t, errors.Is(err, ErrUnknownStrategy), test.ShouldBeTrue)
	test.That(t, RegisteredStrategies(), test.ShouldContain, DirectionStrategyName)
}
