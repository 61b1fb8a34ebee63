package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

// kappa places cubic control points so four segments approximate a circle.
const kappa = 0.5522847498

// pen feeds a rasterizer whose origin sits at off in destination space.
type pen struct {
	z   *vector.Rasterizer
	off r2.Vec
}

func (p pen) moveTo(v r2.Vec) {
	p.z.MoveTo(float32(v.X-p.off.X), float32(v.Y-p.off.Y))
}

func (p pen) lineTo(v r2.Vec) {
	p.z.LineTo(float32(v.X-p.off.X), float32(v.Y-p.off.Y))
}

func (p pen) cubeTo(b, c, d r2.Vec) {
	p.z.CubeTo(
		float32(b.X-p.off.X), float32(b.Y-p.off.Y),
		float32(c.X-p.off.X), float32(c.Y-p.off.Y),
		float32(d.X-p.off.X), float32(d.Y-p.off.Y),
	)
}

func (p pen) close() { p.z.ClosePath() }

// circle traces a closed circle. reverse flips the winding so the circle
// cuts a hole out of an enclosing path.
func (p pen) circle(c r2.Vec, r float64, reverse bool) {
	k := kappa * r
	s := 1.0
	if reverse {
		s = -1
	}
	p.moveTo(r2.Vec{X: c.X + r, Y: c.Y})
	p.cubeTo(r2.Vec{X: c.X + r, Y: c.Y + s*k}, r2.Vec{X: c.X + k, Y: c.Y + s*r}, r2.Vec{X: c.X, Y: c.Y + s*r})
	p.cubeTo(r2.Vec{X: c.X - k, Y: c.Y + s*r}, r2.Vec{X: c.X - r, Y: c.Y + s*k}, r2.Vec{X: c.X - r, Y: c.Y})
	p.cubeTo(r2.Vec{X: c.X - r, Y: c.Y - s*k}, r2.Vec{X: c.X - k, Y: c.Y - s*r}, r2.Vec{X: c.X, Y: c.Y - s*r})
	p.cubeTo(r2.Vec{X: c.X + k, Y: c.Y - s*r}, r2.Vec{X: c.X + r, Y: c.Y - s*k}, r2.Vec{X: c.X + r, Y: c.Y})
	p.close()
}

// fill rasterizes the path built by trace inside the box [lo, hi] and
// composites col over dst. Work outside dst is skipped.
func fill(dst *image.RGBA, lo, hi r2.Vec, col color.Color, trace func(pen)) {
	box := image.Rect(
		int(math.Floor(lo.X)), int(math.Floor(lo.Y)),
		int(math.Ceil(hi.X))+1, int(math.Ceil(hi.Y))+1,
	).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	trace(pen{z: z, off: r2.Vec{X: float64(box.Min.X), Y: float64(box.Min.Y)}})
	z.Draw(dst, box, image.NewUniform(col), image.Point{})
}

func fillCircle(dst *image.RGBA, c r2.Vec, r float64, col color.Color) {
	if r <= 0 {
		return
	}
	ext := r2.Vec{X: r, Y: r}
	fill(dst, r2.Sub(c, ext), r2.Add(c, ext), col, func(p pen) {
		p.circle(c, r, false)
	})
}

// strokeCircle draws a ring of the given width centred on radius r.
func strokeCircle(dst *image.RGBA, c r2.Vec, r, width float64, col color.Color) {
	outer := r + width/2
	inner := r - width/2
	if outer <= 0 {
		return
	}
	ext := r2.Vec{X: outer, Y: outer}
	fill(dst, r2.Sub(c, ext), r2.Add(c, ext), col, func(p pen) {
		p.circle(c, outer, false)
		if inner > 0 {
			p.circle(c, inner, true)
		}
	})
}

// strokeLine draws a butt-capped segment from a to b.
func strokeLine(dst *image.RGBA, a, b r2.Vec, width float64, col color.Color) {
	d := r2.Sub(b, a)
	if r2.Norm(d) == 0 || width <= 0 {
		return
	}
	u := r2.Unit(d)
	n := r2.Scale(width/2, r2.Vec{X: -u.Y, Y: u.X})
	pts := []r2.Vec{r2.Add(a, n), r2.Add(b, n), r2.Sub(b, n), r2.Sub(a, n)}
	fillPolygon(dst, pts, col)
}

func fillPolygon(dst *image.RGBA, pts []r2.Vec, col color.Color) {
	if len(pts) < 3 {
		return
	}
	lo, hi := pts[0], pts[0]
	for _, v := range pts[1:] {
		lo = r2.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y)}
		hi = r2.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y)}
	}
	fill(dst, lo, hi, col, func(p pen) {
		p.moveTo(pts[0])
		for _, v := range pts[1:] {
			p.lineTo(v)
		}
		p.close()
	})
}

// fillRoundedRect fills the rectangle with corner lo and size sz, with
// corners rounded by radius.
func fillRoundedRect(dst *image.RGBA, lo, sz r2.Vec, radius float64, col color.Color) {
	if sz.X <= 0 || sz.Y <= 0 {
		return
	}
	r := math.Min(radius, math.Min(sz.X, sz.Y)/2)
	k := kappa * r
	hi := r2.Add(lo, sz)
	fill(dst, lo, hi, col, func(p pen) {
		p.moveTo(r2.Vec{X: lo.X + r, Y: lo.Y})
		p.lineTo(r2.Vec{X: hi.X - r, Y: lo.Y})
		p.cubeTo(r2.Vec{X: hi.X - r + k, Y: lo.Y}, r2.Vec{X: hi.X, Y: lo.Y + r - k}, r2.Vec{X: hi.X, Y: lo.Y + r})
		p.lineTo(r2.Vec{X: hi.X, Y: hi.Y - r})
		p.cubeTo(r2.Vec{X: hi.X, Y: hi.Y - r + k}, r2.Vec{X: hi.X - r + k, Y: hi.Y}, r2.Vec{X: hi.X - r, Y: hi.Y})
		p.lineTo(r2.Vec{X: lo.X + r, Y: hi.Y})
		p.cubeTo(r2.Vec{X: lo.X + r - k, Y: hi.Y}, r2.Vec{X: lo.X, Y: hi.Y - r + k}, r2.Vec{X: lo.X, Y: hi.Y - r})
		p.lineTo(r2.Vec{X: lo.X, Y: lo.Y + r})
		p.cubeTo(r2.Vec{X: lo.X, Y: lo.Y + r - k}, r2.Vec{X: lo.X + r - k, Y: lo.Y}, r2.Vec{X: lo.X + r, Y: lo.Y})
		p.close()
	})
}
