package canvas

import (
	"image"

	"github.com/rs/zerolog"

	"github.com/example/instructsheet/internal/render"
	"github.com/example/instructsheet/internal/sheet"
	"github.com/example/instructsheet/internal/theme"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for load and render failures.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithStyle sets the initial style.
func WithStyle(s render.Style) Option {
	return func(c *Controller) { c.style = s.Normalized() }
}

// WithTheme sets the theme of the renderer.
func WithTheme(t *theme.Theme) Option {
	return func(c *Controller) { c.renderer.SetTheme(t) }
}

// WithRenderer replaces the renderer, for sharing a font cache.
func WithRenderer(r *render.Renderer) Option {
	return func(c *Controller) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithTolerance sets the hit radius in backing pixels.
func WithTolerance(tol float64) Option {
	return func(c *Controller) {
		if tol > 0 {
			c.tolerance = tol
		}
	}
}

// WithAnnotations seeds the annotation list.
func WithAnnotations(list []sheet.Annotation) Option {
	return func(c *Controller) {
		if n, err := sheet.Normalize(list); err == nil {
			c.anns = n
		}
	}
}

// WithImage seeds the source image.
func WithImage(img image.Image) Option {
	return func(c *Controller) { c.setImageLocked(img) }
}

// WithChangeListener registers fn to receive the annotation list after every
// drag mutation.
func WithChangeListener(fn func([]sheet.Annotation)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithSurfaceListener registers fn to receive the surface after every
// repaint, and nil when the surface goes away. The image is reused by the
// next repaint, so fn must copy what it keeps.
func WithSurfaceListener(fn func(*image.RGBA)) Option {
	return func(c *Controller) { c.onSurface = fn }
}
