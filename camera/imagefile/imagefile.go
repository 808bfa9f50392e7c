// Package imagefile implements an image source that always returns the same image from disk.
package imagefile

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
	_ "github.com/lmittmann/ppm" // register ppm
	"github.com/pkg/errors"
	_ "github.com/xfmoulet/qoi" // register qoi
)

// Source serves one decoded image file.
type Source struct {
	img image.Image
}

// New decodes the image at path, honoring its EXIF orientation. JPEG, PNG, GIF, BMP, TIFF, PPM and QOI
// files are supported.
func New(path string) (*Source, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image file %q", path)
	}
	return &Source{img: img}, nil
}

// Read returns the decoded image.
func (s *Source) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.img, nil
}

// Close is a no-op.
func (s *Source) Close() error {
	return nil
}
