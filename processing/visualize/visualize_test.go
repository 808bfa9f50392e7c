package visualize

import (
	"context"
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"

	"github.com/e2e-ad/rover/config"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/processing"
	"github.com/e2e-ad/rover/sensordata"
)

func black(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func TestProcessDrawsOnCopies(t *testing.T) {
	logger := logging.NewTestLogger(t)
	m := New(Config{LineWidth: 4}, logger)

	left := black(200, 150)
	state := sensordata.NewFusedState(left, nil)
	state.Direction = sensordata.DirectionLeft
	state.LeftDetections = []sensordata.Detection{{Label: "chair", Score: 0.9, Box: image.Rect(50, 50, 150, 120)}}
	state.LeftTracks = []sensordata.Track{{ID: 3, Label: "chair", Box: image.Rect(20, 100, 60, 140)}}

	out, err := m.Process(context.Background(), state)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Direction, test.ShouldEqual, sensordata.DirectionLeft)
	test.That(t, out.LeftFrame, test.ShouldEqual, left)
	test.That(t, out.RightFrameAnnotated, test.ShouldBeNil)
	test.That(t, out.LeftFrameAnnotated, test.ShouldNotBeNil)
	test.That(t, out.LeftFrameAnnotated.Bounds(), test.ShouldResemble, left.Bounds())

	r, g, _, _ := out.LeftFrameAnnotated.At(100, 50).RGBA()
	test.That(t, r>>8, test.ShouldBeGreaterThan, uint32(128))
	test.That(t, g>>8, test.ShouldBeLessThan, uint32(64))

	r, g, _, _ = out.LeftFrameAnnotated.At(20, 120).RGBA()
	test.That(t, g>>8, test.ShouldBeGreaterThan, uint32(128))
	test.That(t, r>>8, test.ShouldBeLessThan, uint32(64))

	test.That(t, left.At(100, 50), test.ShouldResemble, color.RGBA{A: 255})
}

func TestTrackColors(t *testing.T) {
	seen := map[color.Color]bool{}
	for id := 0; id < 5; id++ {
		r, g, _, _ := trackColor(id).RGBA()
		test.That(t, g>>8, test.ShouldEqual, uint32(255))
		test.That(t, r>>8, test.ShouldBeLessThan, uint32(64))
		seen[trackColor(id)] = true
	}
	test.That(t, len(seen), test.ShouldEqual, 5)
	test.That(t, trackColor(-3), test.ShouldResemble, trackColor(3))
}

func TestRegistered(t *testing.T) {
	logger := logging.NewTestLogger(t)
	m, err := processing.NewModule(context.Background(), processing.Dependencies{}, ModuleName,
		config.AttributeMap{"line_width": 3, "hide_direction": true}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.(*Module).lineWidth, test.ShouldEqual, 3.0)
	test.That(t, m.(*Module).hideDirection, test.ShouldBeTrue)

	_, err = processing.NewModule(context.Background(), processing.Dependencies{}, ModuleName,
		config.AttributeMap{"colour": "red"}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
