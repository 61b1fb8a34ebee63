package window

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/example/instructsheet/internal/geom"
)

const (
	statusHeight = 22
	checkerSize  = 8
	margin       = 8
)

// imageRect fits an image of natural size img into a window of the given
// size above the status bar, centered and keeping the aspect ratio. Small
// images are not enlarged.
func imageRect(img geom.Size, win image.Point) image.Rectangle {
	availW := float64(win.X - 2*margin)
	availH := float64(win.Y - statusHeight - 2*margin)
	if img.Empty() || availW <= 0 || availH <= 0 {
		return image.Rectangle{}
	}
	zoom := min(availW/img.W, availH/img.H, 1)
	w := int(img.W * zoom)
	h := int(img.H * zoom)
	x0 := (win.X - w) / 2
	y0 := (win.Y - statusHeight - h) / 2
	return image.Rect(x0, y0, x0+w, y0+h)
}

// toDisplay converts a window position into coordinates local to the
// displayed image. inside is false when p is outside rect.
func toDisplay(x, y float32, rect image.Rectangle) (p r2.Vec, display geom.Size, inside bool) {
	display = geom.SizeOf(rect)
	p = r2.Vec{X: float64(x) - float64(rect.Min.X), Y: float64(y) - float64(rect.Min.Y)}
	inside = p.X >= 0 && p.Y >= 0 && p.X < display.W && p.Y < display.H
	return p, display, inside
}

// drawCheckerboard fills rect of dst with a checkerboard pattern of the given
// colors. size controls the checker square size.
func drawCheckerboard(dst *image.RGBA, rect image.Rectangle, size int, light, dark color.Color) {
	l := image.NewUniform(light)
	d := image.NewUniform(dark)
	for y := rect.Min.Y; y < rect.Max.Y; y += size {
		for x := rect.Min.X; x < rect.Max.X; x += size {
			src := l
			if ((x-rect.Min.X)/size+(y-rect.Min.Y)/size)%2 != 0 {
				src = d
			}
			cell := image.Rect(x, y, x+size, y+size).Intersect(rect)
			draw.Draw(dst, cell, src, image.Point{}, draw.Src)
		}
	}
}

// drawStatus paints the status bar along the bottom edge of dst.
func drawStatus(dst *image.RGBA, left, right string, bg, fg color.Color) {
	b := dst.Bounds()
	bar := image.Rect(b.Min.X, b.Max.Y-statusHeight, b.Max.X, b.Max.Y)
	draw.Draw(dst, bar, image.NewUniform(bg), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(fg), Face: face}
	baseline := bar.Min.Y + (statusHeight+face.Ascent-face.Descent)/2
	d.Dot = fixed.P(bar.Min.X+margin, baseline)
	d.DrawString(left)
	if right != "" {
		w := d.MeasureString(right).Ceil()
		d.Dot = fixed.P(bar.Max.X-margin-w, baseline)
		d.DrawString(right)
	}
}
