package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/test"

	"github.com/e2e-ad/rover/channel"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/sensordata"
)

// robot is a websocket endpoint that records every command it receives. It refuses handshakes
// while down is set.
type robot struct {
	down     *atomic.Bool
	commands chan sensordata.Command
}

func newRobot(t *testing.T) (*robot, string) {
	t.Helper()
	r := &robot{down: atomic.NewBool(false), commands: make(chan sensordata.Command, 16)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.down.Load() {
			http.Error(w, "booting", http.StatusServiceUnavailable)
			return
		}
		conn, err := websocket.Accept(w, req, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		for {
			var cmd sensordata.Command
			if err := wsjson.Read(req.Context(), conn, &cmd); err != nil {
				return
			}
			r.commands <- cmd
		}
	}))
	t.Cleanup(srv.Close)
	return r, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestSend(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r, url := newRobot(t)

	c, err := Dial(context.Background(), url, Options{}, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, c.Send(context.Background(), 0.5, -0.5), test.ShouldBeNil)
	test.That(t, c.Send(context.Background(), 0, 0), test.ShouldBeNil)
	test.That(t, <-r.commands, test.ShouldResemble, sensordata.Command{Left: 0.5, Right: -0.5})
	test.That(t, <-r.commands, test.ShouldResemble, sensordata.StopCommand)

	test.That(t, c.Close(), test.ShouldBeNil)
	err = c.Send(context.Background(), 1, 1)
	test.That(t, errors.Is(err, channel.ErrClosed), test.ShouldBeTrue)
	test.That(t, c.Close(), test.ShouldBeNil)
}

func TestSendDialsLazily(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	r, url := newRobot(t)
	r.down.Store(true)

	c, err := Dial(context.Background(), url, Options{}, logger)
	test.That(t, err, test.ShouldBeNil)
	defer c.Close()
	test.That(t, logs.FilterMessage("robot not reachable yet, will retry on send").Len(), test.ShouldEqual, 1)

	err = c.Send(context.Background(), 1, 1)
	test.That(t, err, test.ShouldNotBeNil)

	r.down.Store(false)
	test.That(t, c.Send(context.Background(), 1, 1), test.ShouldBeNil)
	test.That(t, <-r.commands, test.ShouldResemble, sensordata.Command{Left: 1, Right: 1})
}

func TestDialRequiresURL(t *testing.T) {
	_, err := Dial(context.Background(), "", Options{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
