package camera

import (
	"context"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/e2e-ad/rover/logging"
)

type fakeSource struct {
	reads  atomic.Int32
	closed atomic.Bool
	read   func(n int32) (image.Image, error)
}

func (f *fakeSource) Read(ctx context.Context) (image.Image, error) {
	return f.read(f.reads.Add(1))
}

func (f *fakeSource) Close() error {
	f.closed.Store(true)
	return nil
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDualCaptureFrames(t *testing.T) {
	logger := logging.NewTestLogger(t)
	clk := clock.NewMock()
	red, blue := solid(4, 4, color.RGBA{R: 255, A: 255}), solid(4, 4, color.RGBA{B: 255, A: 255})

	left := &fakeSource{read: func(int32) (image.Image, error) { return red, nil }}
	failRight := atomic.Bool{}
	failRight.Store(true)
	right := &fakeSource{read: func(int32) (image.Image, error) {
		if failRight.Load() {
			return nil, errors.New("no signal")
		}
		return blue, nil
	}}

	dc := NewDualCapture(left, right, DualCaptureOptions{PollInterval: 30 * time.Millisecond, Clock: clk}, logger)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		_, _, ok, err := dc.Frames(context.Background())
		test.That(tb, ok, test.ShouldBeFalse)
		test.That(tb, err, test.ShouldNotBeNil)
		if err == nil {
			return
		}
		test.That(tb, err.Error(), test.ShouldContainSubstring, "right camera: no signal")
	})

	failRight.Store(false)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		clk.Add(30 * time.Millisecond)
		l, r, ok, err := dc.Frames(context.Background())
		test.That(tb, err, test.ShouldBeNil)
		test.That(tb, ok, test.ShouldBeTrue)
		test.That(tb, l, test.ShouldEqual, red)
		test.That(tb, r, test.ShouldEqual, blue)
	})

	test.That(t, dc.Close(), test.ShouldBeNil)
	test.That(t, left.closed.Load(), test.ShouldBeTrue)
	test.That(t, right.closed.Load(), test.ShouldBeTrue)
}

func TestCropper(t *testing.T) {
	frame := solid(640, 480, color.White)

	var nilCropper *Cropper
	l, r, ok := nilCropper.Transform(frame, frame)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, l, test.ShouldEqual, frame)
	test.That(t, r, test.ShouldEqual, frame)

	c := &Cropper{Left: image.Rect(0, 0, 320, 240)}
	l, r, ok = c.Transform(frame, frame)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, l.Bounds().Dx(), test.ShouldEqual, 320)
	test.That(t, l.Bounds().Dy(), test.ShouldEqual, 240)
	test.That(t, r, test.ShouldEqual, frame)

	c = &Cropper{Right: image.Rect(600, 400, 800, 800)}
	_, r, ok = c.Transform(frame, frame)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, r.Bounds().Dx(), test.ShouldEqual, 40)
	test.That(t, r.Bounds().Dy(), test.ShouldEqual, 80)

	c = &Cropper{Left: image.Rect(1000, 1000, 1100, 1100)}
	_, _, ok = c.Transform(frame, frame)
	test.That(t, ok, test.ShouldBeFalse)

	_, _, ok = (&Cropper{}).Transform(nil, frame)
	test.That(t, ok, test.ShouldBeFalse)
}
