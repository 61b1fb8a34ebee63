// Package render draws instruction sheets: the source image with every
// annotation's arrow, handles, numbered start marker and label box on top.
// Every call repaints the whole surface.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/image/font"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/example/instructsheet/internal/geom"
	"github.com/example/instructsheet/internal/sheet"
	"github.com/example/instructsheet/internal/theme"
)

const instrumentationName = "github.com/example/instructsheet/internal/render"

// ErrNoImage is returned when there is no source image to draw on.
var ErrNoImage = errors.New("no source image")

// Renderer draws annotations. It is safe for concurrent use; calls are
// serialized.
type Renderer struct {
	mu     sync.Mutex
	theme  *theme.Theme
	fonts  *Fonts
	frames metric.Int64Counter
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTheme sets the colors used for everything except the arrows.
func WithTheme(t *theme.Theme) Option {
	return func(r *Renderer) {
		if t != nil {
			r.theme = t
		}
	}
}

// WithFonts shares a font cache between renderers.
func WithFonts(f *Fonts) Option {
	return func(r *Renderer) {
		if f != nil {
			r.fonts = f
		}
	}
}

// New returns a Renderer with the default theme.
func New(opts ...Option) *Renderer {
	r := &Renderer{theme: theme.Default(), fonts: NewFonts()}
	for _, opt := range opts {
		opt(r)
	}
	// the global provider is a no-op unless one is installed
	frames, err := otel.Meter(instrumentationName).Int64Counter(
		"render.frames",
		metric.WithDescription("Full repaints of an instruction sheet"),
	)
	if err != nil {
		frames = noop.Int64Counter{}
	}
	r.frames = frames
	return r
}

// Theme returns the theme in use.
func (r *Renderer) Theme() *theme.Theme {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.theme
}

// SetTheme replaces the theme. A nil theme restores the default.
func (r *Renderer) SetTheme(t *theme.Theme) {
	if t == nil {
		t = theme.Default()
	}
	r.mu.Lock()
	r.theme = t
	r.mu.Unlock()
}

// Render draws src and anns into surface and returns it. surface is reused
// when it already has the size of src, otherwise a new one is allocated.
// hover and drag mark the active handles and may be nil.
func (r *Renderer) Render(surface *image.RGBA, src image.Image, anns []sheet.Annotation, hover, drag *sheet.Handle, style Style) (*image.RGBA, error) {
	if src == nil {
		return nil, ErrNoImage
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	b := src.Bounds()
	if b.Empty() {
		return nil, ErrNoImage
	}
	want := image.Rect(0, 0, b.Dx(), b.Dy())
	if surface == nil || surface.Bounds() != want {
		surface = image.NewRGBA(want)
	}
	draw.Draw(surface, want, src, b.Min, draw.Src)

	style = style.Normalized()
	bold, err := r.face(style, true)
	if err != nil {
		return nil, err
	}
	regular, err := r.face(style, false)
	if err != nil {
		return nil, err
	}

	size := geom.SizeOf(want)
	for i, a := range anns {
		r.drawAnnotation(surface, i, a, size, hover, drag, style, bold, regular)
	}
	r.frames.Add(context.Background(), 1)
	return surface, nil
}

// face loads the requested family and falls back to the built-in sans
// serif when it cannot be loaded.
func (r *Renderer) face(style Style, bold bool) (font.Face, error) {
	face, err := r.fonts.Face(style.FontFamily, style.FontSize, bold)
	if err == nil {
		return face, nil
	}
	face, ferr := r.fonts.Face(FamilySans, style.FontSize, bold)
	if ferr != nil {
		return nil, fmt.Errorf("font %q: %w", style.FontFamily, errors.Join(err, ferr))
	}
	return face, nil
}

func (r *Renderer) drawAnnotation(dst *image.RGBA, i int, a sheet.Annotation, size geom.Size, hover, drag *sheet.Handle, style Style, bold, regular font.Face) {
	col := style.ArrowColor.At(i, r.theme.Palette)
	from := geom.Start(a, size)
	to := geom.Target(a, size)

	width := lineWidth
	if hover.On(i) || drag.On(i) {
		width = lineWidthActive
	}

	strokeLine(dst, from, to, width, col)
	drawArrowHead(dst, from, to, ArrowHeadLength(style.FontSize), col)

	if hover.Is(i, sheet.HandleTarget) || drag.Is(i, sheet.HandleTarget) {
		fillCircle(dst, to, handleRadius, r.theme.HandleFill)
		strokeCircle(dst, to, handleRadius, width, col)
	}

	radius := StartRadius(style.FontSize)
	fillCircle(dst, from, radius, col)
	if hover.Is(i, sheet.HandleStart) {
		strokeCircle(dst, from, radius, startRingWidth, r.theme.StartRing)
	}
	drawTextCentered(dst, bold, strconv.Itoa(a.Number), from, r.theme.MarkerText)

	drawLabel(dst, regular, a.Label, from, style.FontSize, r.theme)
}

// drawArrowHead fills a triangle with its tip on to, wings 30 degrees either
// side of the shaft.
func drawArrowHead(dst *image.RGBA, from, to r2.Vec, length float64, col color.Color) {
	d := r2.Sub(to, from)
	if r2.Norm(d) == 0 {
		return
	}
	back := r2.Scale(-length, r2.Unit(d))
	left := r2.Add(to, r2.Rotate(back, math.Pi/6, r2.Vec{}))
	right := r2.Add(to, r2.Rotate(back, -math.Pi/6, r2.Vec{}))
	fillPolygon(dst, []r2.Vec{to, left, right}, col)
}

// LabelRect returns the label box position and size for an annotation
// whose start marker is at from.
func LabelRect(face font.Face, label string, from r2.Vec, fontSize float64) (lo, sz r2.Vec) {
	radius := StartRadius(fontSize)
	sz = r2.Vec{X: MeasureText(face, label) + fontSize, Y: fontSize*1.5 + 4}
	lo = r2.Vec{X: from.X + radius + labelGap, Y: from.Y - sz.Y/2}
	return lo, sz
}

func drawLabel(dst *image.RGBA, face font.Face, label string, from r2.Vec, fontSize float64, th *theme.Theme) {
	lo, sz := LabelRect(face, label, from, fontSize)
	fillRoundedRect(dst, lo, sz, labelCornerRadii, th.LabelBackground)
	drawTextMiddle(dst, face, label, lo.X+fontSize/2, lo.Y+sz.Y/2, th.LabelText)
}
