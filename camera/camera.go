// Package camera provides the stereo frame source feeding the processing pipeline.
package camera

import (
	"context"
	"image"
)

// A FrameSource yields stereo frame pairs. ok is false when no new pair is ready yet.
type FrameSource interface {
	Frames(ctx context.Context) (left, right image.Image, ok bool, err error)
	Close() error
}

// An ImageSource produces single images from one camera.
type ImageSource interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}
