package visualize

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/gofont/goregular"
)

// Overlay colors.
var (
	detectionColor = color.NRGBA{R: 255, A: 255}
	directionColor = color.NRGBA{R: 255, G: 255, A: 255}
)

// trackColor gives each track ID its own shade between green and cyan.
func trackColor(id int) color.Color {
	if id < 0 {
		id = -id
	}
	return colorful.Hsv(120+float64((id*37)%60), 1, 1)
}

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// drawString writes a string to the given context at a particular point.
func drawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, 0)
}

// drawRectangleEmpty outlines r.
func drawRectangleEmpty(dc *gg.Context, r image.Rectangle, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Stroke()
}
