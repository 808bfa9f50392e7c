package navigation

import (
	"github.com/pkg/errors"

	"github.com/e2e-ad/rover/config"
	"github.com/e2e-ad/rover/sensordata"
)

// DirectionStrategyName is the registered type of DirectionStrategy.
const DirectionStrategyName = "direction"

func init() {
	RegisterStrategy(DirectionStrategyName, func(attrs config.AttributeMap) (Strategy, error) {
		conf := DirectionStrategyConfig{ForwardSpeed: 1, TurnSpeed: 1}
		if err := attrs.Decode(&conf); err != nil {
			return nil, err
		}
		if err := conf.Validate(); err != nil {
			return nil, err
		}
		return &DirectionStrategy{Forward: conf.ForwardSpeed, Turn: conf.TurnSpeed}, nil
	})
}

// DirectionStrategyConfig is the attribute set of the direction strategy. Both speeds default to 1.
type DirectionStrategyConfig struct {
	ForwardSpeed float64 `json:"forward_speed"`
	TurnSpeed    float64 `json:"turn_speed"`
}

// Validate ensures both speeds are magnitudes in [0, 1].
func (conf *DirectionStrategyConfig) Validate() error {
	if conf.ForwardSpeed < 0 || conf.ForwardSpeed > 1 {
		return errors.Errorf("forward_speed %v must be in [0, 1]", conf.ForwardSpeed)
	}
	if conf.TurnSpeed < 0 || conf.TurnSpeed > 1 {
		return errors.Errorf("turn_speed %v must be in [0, 1]", conf.TurnSpeed)
	}
	return nil
}

// DirectionStrategy drives a differential base from the state's direction token. Turns spin in
// place.
type DirectionStrategy struct {
	Forward float64
	Turn    float64
}

// Decide maps forward, left and right to wheel speeds; anything else stops.
func (s *DirectionStrategy) Decide(state *sensordata.FusedState) sensordata.Command {
	if state == nil {
		return sensordata.StopCommand
	}
	switch state.Direction {
	case sensordata.DirectionForward:
		return sensordata.Command{Left: s.Forward, Right: s.Forward}
	case sensordata.DirectionLeft:
		return sensordata.Command{Left: -s.Turn, Right: s.Turn}
	case sensordata.DirectionRight:
		return sensordata.Command{Left: s.Turn, Right: -s.Turn}
	default:
		return sensordata.StopCommand
	}
}
