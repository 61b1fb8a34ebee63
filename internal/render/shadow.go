package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/blur"
)

// Shadow configures the drop shadow added around an exported sheet.
type Shadow struct {
	Radius  int
	Offset  image.Point
	Opacity float64
}

// DefaultShadow returns a soft shadow that suits most sheets.
func DefaultShadow() Shadow {
	return Shadow{Radius: 24, Offset: image.Pt(16, 16), Opacity: 0.55}
}

// DropShadow returns img on a larger transparent canvas with a blurred
// shadow of its alpha behind it. The result starts at the origin. A zero
// opacity returns img unchanged.
func DropShadow(img *image.RGBA, s Shadow) *image.RGBA {
	if img == nil || img.Bounds().Empty() || s.Opacity <= 0 {
		return img
	}
	opacity := min(s.Opacity, 1)
	radius := max(s.Radius, 0)

	src := img.Bounds()
	silhouette := src.Inset(-radius).Add(s.Offset)
	all := src.Union(silhouette)
	dst := image.NewRGBA(all.Sub(all.Min))

	// shadow layer in silhouette-local coordinates
	layer := image.NewRGBA(image.Rect(0, 0, silhouette.Dx(), silhouette.Dy()))
	for y := src.Min.Y; y < src.Max.Y; y++ {
		for x := src.Min.X; x < src.Max.X; x++ {
			a := img.RGBAAt(x, y).A
			if a == 0 {
				continue
			}
			alpha := uint8(float64(a)*opacity + 0.5)
			layer.SetRGBA(x-src.Min.X+radius, y-src.Min.Y+radius, color.RGBA{A: alpha})
		}
	}
	var blurred image.Image = layer
	if radius > 0 {
		blurred = blur.Gaussian(layer, float64(radius)/2)
	}

	draw.Draw(dst, silhouette.Sub(all.Min), blurred, image.Point{}, draw.Over)
	draw.Draw(dst, src.Sub(all.Min), img, src.Min, draw.Over)
	return dst
}
