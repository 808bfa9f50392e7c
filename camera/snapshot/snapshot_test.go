package snapshot

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.viam.com/test"

	"github.com/e2e-ad/rover/logging"
)

func TestRead(t *testing.T) {
	logger := logging.NewTestLogger(t)

	var encoded bytes.Buffer
	test.That(t, png.Encode(&encoded, image.NewGray(image.Rect(0, 0, 12, 9))), test.ShouldBeNil)

	mux := http.NewServeMux()
	mux.HandleFunc("/cam.png", func(w http.ResponseWriter, r *http.Request) {
		//nolint:errcheck
		w.Write(encoded.Bytes())
	})
	mux.HandleFunc("/text", func(w http.ResponseWriter, r *http.Request) {
		//nolint:errcheck
		w.Write([]byte("hello"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src, err := New(srv.URL+"/cam.png", 0, logger)
	test.That(t, err, test.ShouldBeNil)
	img, err := src.Read(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 12, 9))
	test.That(t, src.Close(), test.ShouldBeNil)

	src, err = New(srv.URL+"/text", 0, logger)
	test.That(t, err, test.ShouldBeNil)
	_, err = src.Read(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "MIME type")

	src, err = New(srv.URL+"/missing", 0, logger)
	test.That(t, err, test.ShouldBeNil)
	_, err = src.Read(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "404")

	_, err = New("", 0, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
