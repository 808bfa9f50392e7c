// Package snapshot implements an image source that fetches still images over HTTP, as served by
// most IP cameras and ESP32 camera boards.
package snapshot

import (
	"bytes"
	"context"
	"image"
	// register decoders for the formats cameras serve.
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/e2e-ad/rover/logging"
)

// Source reads one image per request from a snapshot URL.
type Source struct {
	url    string
	client http.Client
	logger logging.Logger
}

// New returns a Source for url. A zero timeout leaves requests bounded only by their context.
func New(url string, timeout time.Duration, logger logging.Logger) (*Source, error) {
	if url == "" {
		return nil, errors.New("snapshot url is required")
	}
	return &Source{url: url, client: http.Client{Timeout: timeout}, logger: logger}, nil
}

// Read fetches and decodes the current snapshot.
func (s *Source) Read(ctx context.Context) (image.Image, error) {
	data, err := s.readBytes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read snapshot url")
	}
	detected := http.DetectContentType(data)
	if !strings.Contains(detected, "image") {
		return nil, errors.Errorf("cannot decode image from MIME type '%s'", detected)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s snapshot", detected)
	}
	s.logger.Debugw("read snapshot", "url", s.url, "format", format, "bounds", img.Bounds())
	return img, nil
}

func (s *Source) readBytes(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		goutils.UncheckedError(resp.Body.Close())
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Close releases idle connections.
func (s *Source) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
