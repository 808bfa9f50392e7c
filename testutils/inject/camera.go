package inject

import (
	"context"
	"image"

	"github.com/e2e-ad/rover/camera"
)

// FrameSource is an injected stereo frame source.
type FrameSource struct {
	camera.FrameSource
	FramesFunc func(ctx context.Context) (image.Image, image.Image, bool, error)
	CloseFunc  func() error
}

// Frames calls the injected Frames or the real version.
func (fs *FrameSource) Frames(ctx context.Context) (image.Image, image.Image, bool, error) {
	if fs.FramesFunc == nil {
		return fs.FrameSource.Frames(ctx)
	}
	return fs.FramesFunc(ctx)
}

// Close calls the injected Close or the real version.
func (fs *FrameSource) Close() error {
	if fs.CloseFunc == nil {
		if fs.FrameSource == nil {
			return nil
		}
		return fs.FrameSource.Close()
	}
	return fs.CloseFunc()
}

// ImageSource is an injected single camera.
type ImageSource struct {
	camera.ImageSource
	ReadFunc  func(ctx context.Context) (image.Image, error)
	CloseFunc func() error
}

// Read calls the injected Read or the real version.
func (is *ImageSource) Read(ctx context.Context) (image.Image, error) {
	if is.ReadFunc == nil {
		return is.ImageSource.Read(ctx)
	}
	return is.ReadFunc(ctx)
}

// Close calls the injected Close or the real version.
func (is *ImageSource) Close() error {
	if is.CloseFunc == nil {
		if is.ImageSource == nil {
			return nil
		}
		return is.ImageSource.Close()
	}
	return is.CloseFunc()
}
