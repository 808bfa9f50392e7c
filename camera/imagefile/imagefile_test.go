package imagefile

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/xfmoulet/qoi"
	"go.viam.com/test"
)

func TestSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	test.That(t, imaging.Save(image.NewNRGBA(image.Rect(0, 0, 6, 3)), path), test.ShouldBeNil)

	src, err := New(path)
	test.That(t, err, test.ShouldBeNil)
	img, err := src.Read(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 6)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Read(ctx)
	test.That(t, err, test.ShouldBeError, context.Canceled)
	test.That(t, src.Close(), test.ShouldBeNil)

	_, err = New(filepath.Join(t.TempDir(), "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSourceFormats(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 4))
	for name, encode := range map[string]func(f *os.File) error{
		"frame.ppm": func(f *os.File) error { return ppm.Encode(f, img) },
		"frame.qoi": func(f *os.File) error { return qoi.Encode(f, img) },
	} {
		name, encode := name, encode
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			f, err := os.Create(path)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, encode(f), test.ShouldBeNil)
			test.That(t, f.Close(), test.ShouldBeNil)

			src, err := New(path)
			test.That(t, err, test.ShouldBeNil)
			decoded, err := src.Read(context.Background())
			test.That(t, err, test.ShouldBeNil)
			test.That(t, decoded.Bounds().Size(), test.ShouldResemble, image.Pt(5, 4))
		})
	}
}
