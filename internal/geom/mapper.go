// Package geom converts between normalized annotation coordinates, backing
// pixels and displayed pixels, and locates annotation handles under a
// pointer.
package geom

import (
	"image"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/example/instructsheet/internal/sheet"
)

// Size is a width and height in pixels.
type Size struct {
	W, H float64
}

// SizeOf returns the size of r.
func SizeOf(r image.Rectangle) Size {
	return Size{W: float64(r.Dx()), H: float64(r.Dy())}
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// ToPixel maps a normalized point to pixel space.
func ToPixel(n r2.Vec, s Size) r2.Vec {
	return r2.Vec{X: n.X / 100 * s.W, Y: n.Y / 100 * s.H}
}

// ToNormalized maps a pixel point back to percentages, clamped to [0,100].
// A zero sized space maps everything to the origin.
func ToNormalized(p r2.Vec, s Size) r2.Vec {
	if s.W == 0 || s.H == 0 {
		return r2.Vec{}
	}
	return r2.Vec{
		X: sheet.Clamp(p.X / s.W * 100),
		Y: sheet.Clamp(p.Y / s.H * 100),
	}
}

// DisplayToBacking rescales a point measured against the displayed size of
// an image into the image's own pixel space. An axis with a zero display
// length is returned as-is.
func DisplayToBacking(p r2.Vec, display, backing Size) r2.Vec {
	out := p
	if display.W != 0 {
		out.X = p.X * backing.W / display.W
	}
	if display.H != 0 {
		out.Y = p.Y * backing.H / display.H
	}
	return out
}

// Start returns the pixel position of the label anchor of a.
func Start(a sheet.Annotation, s Size) r2.Vec {
	return ToPixel(r2.Vec{X: a.ArrowStartX, Y: a.ArrowStartY}, s)
}

// Target returns the pixel position of the point a refers to.
func Target(a sheet.Annotation, s Size) r2.Vec {
	return ToPixel(r2.Vec{X: a.TargetX, Y: a.TargetY}, s)
}
