// Package perception defines the model that turns a camera image into a direction token.
package perception

import (
	"context"
	"image"

	"github.com/e2e-ad/rover/sensordata"
)

// DefaultPrompt instructs a vision language model to answer with a single direction.
const DefaultPrompt = "You are a robot that can see using a camera.\n" +
	"Your task is to move around the world.\n" +
	"DO NOT collide with any objects.\n" +
	"Stay away from walls.\n" +
	"Strictly only output one of the following commands:\n" +
	"{forward}, {left}, {right}, {stop}"

// A Model looks at one image and picks a direction. Implementations return an error rather than
// guess when the answer is not a recognized direction.
type Model interface {
	Direction(ctx context.Context, img image.Image) (sensordata.Direction, error)
	Close() error
}
