package sensordata

import (
	"math"

	"github.com/pkg/errors"

	"github.com/e2e-ad/rover/utils"
)

// Command is a pair of motor speeds, each in [-1, 1]. Sign conventions are up to the strategy
// that produced it.
type Command struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// StopCommand is the neutral command.
var StopCommand = Command{}

// IsStop reports whether both speeds are zero.
func (c Command) IsStop() bool {
	return c.Left == 0 && c.Right == 0
}

// Clamp limits both speeds to [-1, 1]. NaN becomes 0.
func (c Command) Clamp() Command {
	return Command{Left: utils.Clamp(c.Left, -1, 1), Right: utils.Clamp(c.Right, -1, 1)}
}

// Validate returns an error if either speed is out of range or not a number.
func (c Command) Validate() error {
	for _, v := range []float64{c.Left, c.Right} {
		if math.IsNaN(v) || v < -1 || v > 1 {
			return errors.Errorf("motor speed %v outside of [-1, 1]", v)
		}
	}
	return nil
}
