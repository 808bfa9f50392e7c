// Package channel defines the link that carries motor commands to the robot.
package channel

import (
	"context"

	"github.com/pkg/errors"
)

// ErrClosed is returned by Send once the channel has been closed.
var ErrClosed = errors.New("command channel is closed")

// A Channel transmits differential drive commands to the robot.
type Channel interface {
	// Send transmits one (left, right) motor command, each in [-1, 1].
	Send(ctx context.Context, left, right float64) error
	Close() error
}
