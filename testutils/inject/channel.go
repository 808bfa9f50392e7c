package inject

import (
	"context"
	"sync"

	"github.com/e2e-ad/rover/channel"
	"github.com/e2e-ad/rover/sensordata"
)

// Channel is an injected command channel. Every Send is recorded whether or not SendFunc is set.
type Channel struct {
	channel.Channel
	SendFunc  func(ctx context.Context, left, right float64) error
	CloseFunc func() error

	mu   sync.Mutex
	sent []sensordata.Command
}

// Send records the command then calls the injected Send or the real version.
func (c *Channel) Send(ctx context.Context, left, right float64) error {
	c.mu.Lock()
	c.sent = append(c.sent, sensordata.Command{Left: left, Right: right})
	c.mu.Unlock()
	if c.SendFunc == nil {
		if c.Channel == nil {
			return nil
		}
		return c.Channel.Send(ctx, left, right)
	}
	return c.SendFunc(ctx, left, right)
}

// Sent returns a copy of every command passed to Send.
func (c *Channel) Sent() []sensordata.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sensordata.Command(nil), c.sent...)
}

// Close calls the injected Close or the real version.
func (c *Channel) Close() error {
	if c.CloseFunc == nil {
		if c.Channel == nil {
			return nil
		}
		return c.Channel.Close()
	}
	return c.CloseFunc()
}
