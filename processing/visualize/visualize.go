// Package visualize implements the processing module that draws the cycle's perception results
// onto copies of the camera frames.
package visualize

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/fogleman/gg"

	"github.com/e2e-ad/rover/config"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/processing"
	"github.com/e2e-ad/rover/sensordata"
	"github.com/e2e-ad/rover/utils"
)

// ModuleName is the registered type of this module.
const ModuleName = "visualize"

func init() {
	processing.RegisterModule(ModuleName, func(
		ctx context.Context,
		deps processing.Dependencies,
		attrs config.AttributeMap,
		logger logging.Logger,
	) (processing.Module, error) {
		var conf Config
		if err := attrs.Decode(&conf); err != nil {
			return nil, err
		}
		return New(conf, logger), nil
	})
}

// Config is the attribute set of the visualize module.
type Config struct {
	// LineWidth of the boxes, 2 by default.
	LineWidth float64 `json:"line_width"`
	// HideDirection skips drawing the direction banner.
	HideDirection bool `json:"hide_direction"`
}

// Module writes the annotated frames of a state.
type Module struct {
	lineWidth     float64
	hideDirection bool
	logger        logging.Logger
}

// New returns a visualize module.
func New(conf Config, logger logging.Logger) *Module {
	lineWidth := conf.LineWidth
	if lineWidth <= 0 {
		lineWidth = 2
	}
	return &Module{lineWidth: lineWidth, hideDirection: conf.HideDirection, logger: logger}
}

// Name returns the module type.
func (m *Module) Name() string {
	return ModuleName
}

// Process sets the annotated frames. Raw frames and the direction are left untouched.
func (m *Module) Process(ctx context.Context, state *sensordata.FusedState) (*sensordata.FusedState, error) {
	state.LeftFrameAnnotated = m.annotate(state.LeftFrame, state.LeftDetections, state.LeftTracks, state.Direction)
	state.RightFrameAnnotated = m.annotate(state.RightFrame, state.RightDetections, state.RightTracks, state.Direction)
	return state, nil
}

func (m *Module) annotate(
	frame image.Image,
	detections []sensordata.Detection,
	tracks []sensordata.Track,
	dir sensordata.Direction,
) image.Image {
	if frame == nil {
		return nil
	}
	// NewContextForImage draws a copy, the raw frame is never written to.
	dc := gg.NewContextForImage(frame)
	origin := frame.Bounds().Min
	fontSize := float64(utils.MaxInt(12, utils.ScaleByPct(frame.Bounds().Dy(), 0.04)))

	for _, d := range detections {
		box := d.Box.Sub(origin)
		drawRectangleEmpty(dc, box, detectionColor, m.lineWidth)
		drawString(dc, fmt.Sprintf("%s %.2f", d.Label, d.Score), labelPoint(box, fontSize), detectionColor, fontSize)
	}
	for _, tr := range tracks {
		box := tr.Box.Sub(origin)
		c := trackColor(tr.ID)
		drawRectangleEmpty(dc, box, c, m.lineWidth)
		drawString(dc, fmt.Sprintf("#%d %s", tr.ID, tr.Label), labelPoint(box, fontSize), c, fontSize)
	}
	if dir != sensordata.DirectionNone && !m.hideDirection {
		drawString(dc, strings.ToUpper(string(dir)), image.Pt(8, 8), directionColor, fontSize*1.5)
	}
	return dc.Image()
}

func labelPoint(box image.Rectangle, fontSize float64) image.Point {
	y := box.Min.Y - int(fontSize) - 2
	if y < 0 {
		y = box.Min.Y + 2
	}
	return image.Pt(box.Min.X+2, y)
}
