package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/spatial/r2"
)

// MeasureText returns the advance width of s in face.
func MeasureText(face font.Face, s string) float64 {
	d := &font.Drawer{Face: face}
	return fixed26ToFloat(d.MeasureString(s))
}

// drawTextMiddle draws s with its left edge at x and its em box vertically
// centred on y.
func drawTextMiddle(dst *image.RGBA, face font.Face, s string, x, y float64, col color.Color) {
	m := face.Metrics()
	baseline := y + (fixed26ToFloat(m.Ascent)-fixed26ToFloat(m.Descent))/2
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: floatToFixed26(x), Y: floatToFixed26(baseline)},
	}
	d.DrawString(s)
}

// drawTextCentered draws s centred on c.
func drawTextCentered(dst *image.RGBA, face font.Face, s string, c r2.Vec, col color.Color) {
	drawTextMiddle(dst, face, s, c.X-MeasureText(face, s)/2, c.Y, col)
}

func fixed26ToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed26(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}
