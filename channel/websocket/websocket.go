// Package websocket implements a command channel that writes JSON motor commands to the robot's
// websocket endpoint.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/semaphore"

	"github.com/e2e-ad/rover/channel"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/sensordata"
)

// DefaultWriteTimeout bounds a send when no timeout is configured.
const DefaultWriteTimeout = time.Second

// Options configures a Client.
type Options struct {
	WriteTimeout time.Duration
}

// Client sends commands over a websocket connection that is (re)established on demand.
type Client struct {
	url          string
	writeTimeout time.Duration
	logger       logging.Logger

	// sendSem admits one send at a time and guards conn.
	sendSem *semaphore.Weighted
	conn    *websocket.Conn
	closed  *atomic.Bool

	readers sync.WaitGroup
}

var _ channel.Channel = (*Client)(nil)

// Dial returns a client for url and tries to connect right away. A failed first attempt is only
// logged: the next Send dials again.
func Dial(ctx context.Context, url string, opts Options, logger logging.Logger) (*Client, error) {
	if url == "" {
		return nil, errors.New("websocket url is required")
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	c := &Client{
		url:          url,
		writeTimeout: opts.WriteTimeout,
		logger:       logger,
		sendSem:      semaphore.NewWeighted(1),
		closed:       atomic.NewBool(false),
	}
	if err := c.sendSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sendSem.Release(1)
	if err := c.connect(ctx); err != nil {
		logger.Warnw("robot not reachable yet, will retry on send", "url", url, "error", err)
	}
	return c, nil
}

// connect requires sendSem.
func (c *Client) connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	//nolint:bodyclose
	conn, _, err := websocket.Dial(dialCtx, c.url, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to dial %s", c.url)
	}
	c.conn = conn
	c.logger.Infow("connected to robot", "url", c.url)

	// Control frames are only processed while reading; anything the robot sends is dropped.
	c.readers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer c.readers.Done()
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				c.logger.Debugw("websocket reader exiting", "error", err)
				return
			}
		}
	})
	return nil
}

// Send writes one command. A failed write drops the connection so the next Send redials.
func (c *Client) Send(ctx context.Context, left, right float64) error {
	if c.closed.Load() {
		return channel.ErrClosed
	}
	if err := c.sendSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sendSem.Release(1)
	if c.closed.Load() {
		return channel.ErrClosed
	}

	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return err
		}
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	if err := wsjson.Write(writeCtx, c.conn, sensordata.Command{Left: left, Right: right}); err != nil {
		goutils.UncheckedError(c.conn.CloseNow())
		c.conn = nil
		return errors.Wrap(err, "failed to write command")
	}
	return nil
}

// Close closes the connection. Sends in progress finish first; later sends return
// channel.ErrClosed.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if err := c.sendSem.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer c.sendSem.Release(1)

	var err error
	if c.conn != nil {
		err = c.conn.Close(websocket.StatusNormalClosure, "rover shutting down")
		c.conn = nil
	}
	c.readers.Wait()
	return err
}
