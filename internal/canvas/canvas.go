// Package canvas implements the annotation canvas controller. It owns the
// source image, the annotation list, the pointer state and the style, and
// repaints the whole surface after every change.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/anthonynsimon/bild/clone"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/example/instructsheet/internal/geom"
	"github.com/example/instructsheet/internal/imageio"
	"github.com/example/instructsheet/internal/interact"
	"github.com/example/instructsheet/internal/render"
	"github.com/example/instructsheet/internal/sheet"
	"github.com/example/instructsheet/internal/theme"
)

var (
	// ErrNotReady is returned while no image is loaded.
	ErrNotReady = errors.New("canvas has no image")
	// ErrSuperseded is reported to an async load whose result was dropped
	// because a later load finished first.
	ErrSuperseded = errors.New("image load superseded")
)

// Controller is safe for use from several goroutines; calls are serialized
// and listeners run after the internal lock is released.
type Controller struct {
	mu        sync.Mutex
	log       zerolog.Logger
	renderer  *render.Renderer
	tolerance float64

	img     *image.RGBA
	size    geom.Size
	anns    []sheet.Annotation
	state   interact.State
	style   render.Style
	surface *image.RGBA

	started uint64 // sequence of the latest load started
	applied uint64 // sequence of the latest load applied

	onChange  func([]sheet.Annotation)
	onSurface func(*image.RGBA)
}

// New returns a controller. Without WithImage it starts not ready.
func New(opts ...Option) *Controller {
	c := &Controller{
		log:       zerolog.Nop(),
		renderer:  render.New(),
		tolerance: geom.DefaultTolerance,
		style:     render.DefaultStyle(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.img != nil {
		c.repaintLocked()
	}
	return c
}

// outbox collects listener calls to make once the lock is released.
type outbox struct {
	change    []sheet.Annotation
	hasChange bool
	surface   *image.RGBA
	repainted bool
}

func (c *Controller) flush(o outbox) {
	if o.hasChange && c.onChange != nil {
		c.onChange(o.change)
	}
	if o.repainted && c.onSurface != nil {
		c.onSurface(o.surface)
	}
}

// mutate runs fn under the lock and dispatches its listener calls after.
func (c *Controller) mutate(fn func(o *outbox)) {
	var o outbox
	c.mu.Lock()
	fn(&o)
	c.mu.Unlock()
	c.flush(o)
}

// repaintLocked redraws the surface. With no image the surface is dropped.
func (c *Controller) repaintLocked() *image.RGBA {
	if c.img == nil {
		c.surface = nil
		return nil
	}
	out, err := c.renderer.Render(c.surface, c.img, c.anns, c.state.Hover, c.state.Drag, c.style)
	if err != nil {
		c.log.Error().Err(err).Msg("render failed")
		return c.surface
	}
	c.surface = out
	return out
}

func (c *Controller) repaint(o *outbox) {
	had := c.surface != nil
	o.surface = c.repaintLocked()
	// while not ready only the loss of the surface is worth reporting
	o.repainted = o.surface != nil || had
}

func (c *Controller) setImageLocked(img image.Image) {
	c.state = interact.State{}
	if img == nil {
		c.img = nil
		c.size = geom.Size{}
		return
	}
	c.img = clone.AsRGBA(img)
	c.size = geom.SizeOf(c.img.Bounds())
}

// SetImage replaces the source image. The annotation list is kept and the
// pointer state is cleared. A nil image makes the canvas not ready.
func (c *Controller) SetImage(img image.Image) {
	c.mutate(func(o *outbox) {
		c.started++
		c.applied = c.started
		c.setImageLocked(img)
		c.repaint(o)
	})
}

// LoadImage decodes data and installs it as the source image.
func (c *Controller) LoadImage(data []byte, mime string) error {
	c.mu.Lock()
	c.started++
	seq := c.started
	c.mu.Unlock()

	img, detected, err := imageio.Decode(data, mime)
	if err != nil {
		c.log.Warn().Err(err).Str("mime", mime).Msg("image rejected")
		return err
	}
	if !c.apply(seq, img) {
		return ErrSuperseded
	}
	c.log.Debug().Str("mime", detected).Int("width", img.Bounds().Dx()).Int("height", img.Bounds().Dy()).Msg("image loaded")
	return nil
}

// LoadImageAsync decodes data on a new goroutine. done, if not nil,
// receives the outcome after the image was applied or dropped. A result is
// dropped when a load started later has already been applied.
func (c *Controller) LoadImageAsync(data []byte, mime string, done func(error)) {
	c.mu.Lock()
	c.started++
	seq := c.started
	c.mu.Unlock()

	go func() {
		img, _, err := imageio.Decode(data, mime)
		if err == nil && !c.apply(seq, img) {
			c.log.Debug().Uint64("seq", seq).Msg("stale image load dropped")
			err = ErrSuperseded
		}
		if err != nil && !errors.Is(err, ErrSuperseded) {
			c.log.Warn().Err(err).Msg("async image load failed")
		}
		if done != nil {
			done(err)
		}
	}()
}

func (c *Controller) apply(seq uint64, img *image.RGBA) bool {
	ok := false
	c.mutate(func(o *outbox) {
		if seq < c.applied {
			return
		}
		ok = true
		c.applied = seq
		c.state = interact.State{}
		c.img = img
		c.size = geom.SizeOf(img.Bounds())
		c.repaint(o)
	})
	return ok
}

// Ready reports whether an image is loaded.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img != nil
}

// Size returns the natural size of the loaded image.
func (c *Controller) Size() geom.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Surface returns the last rendered surface. It is reused by the next
// repaint.
func (c *Controller) Surface() (*image.RGBA, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.img == nil || c.surface == nil {
		return nil, false
	}
	return c.surface, true
}

// SetAnnotations replaces the annotation list. Entries are clamped and
// numbered; a list with a non-finite coordinate is rejected.
func (c *Controller) SetAnnotations(list []sheet.Annotation) error {
	n, err := sheet.Normalize(list)
	if err != nil {
		return err
	}
	c.mutate(func(o *outbox) {
		c.anns = n
		c.repaint(o)
	})
	return nil
}

// Reset drops every annotation and the pointer state.
func (c *Controller) Reset() {
	c.mutate(func(o *outbox) {
		c.anns = nil
		c.state = interact.State{}
		c.repaint(o)
	})
}

// Annotations returns a copy of the current list.
func (c *Controller) Annotations() []sheet.Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sheet.Annotation, len(c.anns))
	copy(out, c.anns)
	return out
}

// State returns the pointer state.
func (c *Controller) State() interact.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Style returns the current style.
func (c *Controller) Style() render.Style {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.style
}

// SetStyle replaces the style.
func (c *Controller) SetStyle(s render.Style) {
	c.mutate(func(o *outbox) {
		c.style = s.Normalized()
		c.repaint(o)
	})
}

// SetFontSize changes the font size only.
func (c *Controller) SetFontSize(size float64) {
	c.mutate(func(o *outbox) {
		s := c.style
		s.FontSize = size
		c.style = s.Normalized()
		c.repaint(o)
	})
}

// SetFontFamily changes the font family only.
func (c *Controller) SetFontFamily(family string) {
	c.mutate(func(o *outbox) {
		s := c.style
		s.FontFamily = family
		c.style = s.Normalized()
		c.repaint(o)
	})
}

// SetArrowColor changes the arrow color only.
func (c *Controller) SetArrowColor(a render.ArrowColor) {
	c.mutate(func(o *outbox) {
		c.style.ArrowColor = a
		c.repaint(o)
	})
}

// SetTheme changes the theme of the renderer.
func (c *Controller) SetTheme(t *theme.Theme) {
	c.mutate(func(o *outbox) {
		c.renderer.SetTheme(t)
		c.repaint(o)
	})
}

// PointerDown handles a press at p, measured against an image displayed
// at display size.
func (c *Controller) PointerDown(p r2.Vec, display geom.Size) {
	c.pointer(interact.Event{Kind: interact.PointerDown, Pos: p}, display)
}

// PointerMove handles a pointer move to p.
func (c *Controller) PointerMove(p r2.Vec, display geom.Size) {
	c.pointer(interact.Event{Kind: interact.PointerMove, Pos: p}, display)
}

// PointerUp ends a drag.
func (c *Controller) PointerUp() {
	c.pointer(interact.Event{Kind: interact.PointerUp}, geom.Size{})
}

// PointerLeave clears drag and hover.
func (c *Controller) PointerLeave() {
	c.pointer(interact.Event{Kind: interact.PointerLeave}, geom.Size{})
}

func (c *Controller) pointer(ev interact.Event, display geom.Size) {
	c.mutate(func(o *outbox) {
		if c.img == nil {
			return
		}
		ev.Pos = geom.DisplayToBacking(ev.Pos, display, c.size)
		res := interact.Transition(c.state, ev, c.anns, c.size, c.tolerance)
		c.state = res.State
		c.anns = res.Annotations
		if res.Effects.Has(interact.EffectNotify) {
			o.change = make([]sheet.Annotation, len(c.anns))
			copy(o.change, c.anns)
			o.hasChange = true
		}
		if res.Effects.Has(interact.EffectRepaint) {
			c.repaint(o)
		}
	})
}

// Render returns a clean rendering of the sheet without hover or drag
// highlights, in a new image.
func (c *Controller) Render() (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.img == nil {
		return nil, ErrNotReady
	}
	return c.renderer.Render(nil, c.img, c.anns, nil, nil, c.style)
}

// Export writes a clean rendering of the sheet to w in format f.
func (c *Controller) Export(w io.Writer, f imageio.Format) error {
	img, err := c.Render()
	if err != nil {
		return err
	}
	if err := imageio.Encode(w, img, f); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
