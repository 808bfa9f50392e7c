package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/perception"
	"github.com/e2e-ad/rover/sensordata"
)

func newServer(t *testing.T, status int, body string, gotReq *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if gotReq != nil {
			if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		w.WriteHeader(status)
		//nolint:errcheck
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDirection(t *testing.T) {
	logger := logging.NewTestLogger(t)
	var got chatRequest
	srv := newServer(t, http.StatusOK, `{"message": {"role": "assistant", "content": " Left\n"}}`, &got)

	client, err := NewClient(Config{URL: srv.URL + "/", Model: "moondream"}, logger)
	test.That(t, err, test.ShouldBeNil)
	defer client.Close()

	d, err := client.Direction(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, sensordata.DirectionLeft)

	test.That(t, got.Model, test.ShouldEqual, "moondream")
	test.That(t, got.Stream, test.ShouldBeFalse)
	test.That(t, got.Messages, test.ShouldHaveLength, 1)
	test.That(t, got.Messages[0].Content, test.ShouldEqual, perception.DefaultPrompt)
	test.That(t, got.Messages[0].Images, test.ShouldHaveLength, 1)

	raw, err := base64.StdEncoding.DecodeString(got.Messages[0].Images[0])
	test.That(t, err, test.ShouldBeNil)
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.Bounds().Dx(), test.ShouldEqual, 8)
}

func TestDirectionErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	t.Run("invalid token", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, `{"message": {"content": "I would go backwards"}}`, nil)
		client, err := NewClient(Config{URL: srv.URL, Model: "m", Prompt: "custom"}, logger)
		test.That(t, err, test.ShouldBeNil)
		_, err = client.Direction(context.Background(), img)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, sensordata.ErrInvalidDirection.Error())
	})

	t.Run("server error", func(t *testing.T) {
		srv := newServer(t, http.StatusNotFound, `{"error": "model \"m\" not found"}`, nil)
		client, err := NewClient(Config{URL: srv.URL, Model: "m"}, logger)
		test.That(t, err, test.ShouldBeNil)
		_, err = client.Direction(context.Background(), img)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "not found")
	})

	t.Run("timeout", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-block:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(block)
		client, err := NewClient(Config{URL: srv.URL, Model: "m", Timeout: 20 * time.Millisecond}, logger)
		test.That(t, err, test.ShouldBeNil)
		_, err = client.Direction(context.Background(), img)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("nil image", func(t *testing.T) {
		client, err := NewClient(Config{URL: "http://127.0.0.1:1", Model: "m"}, logger)
		test.That(t, err, test.ShouldBeNil)
		_, err = client.Direction(context.Background(), nil)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("bad config", func(t *testing.T) {
		_, err := NewClient(Config{Model: "m"}, logger)
		test.That(t, err, test.ShouldNotBeNil)
		_, err = NewClient(Config{URL: "http://x"}, logger)
		test.That(t, err, test.ShouldNotBeNil)
	})
}
