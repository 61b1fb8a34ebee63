// Package window hosts the annotation canvas in a desktop window. Pointer
// input is fed to the canvas controller; key presses export, copy and
// restyle the sheet.
package window

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/instructsheet/internal/canvas"
	"github.com/example/instructsheet/internal/geom"
	"github.com/example/instructsheet/internal/notify"
	"github.com/example/instructsheet/internal/sheet"
	"github.com/example/instructsheet/internal/theme"
)

const (
	defaultWidth  = 1024
	defaultHeight = 768
	maxWidth      = 1600
	maxHeight     = 1000
	messageTTL    = 3 * time.Second
)

// Window shows one sheet.
type Window struct {
	ctrl      *canvas.Controller
	theme     *theme.Theme
	log       zerolog.Logger
	title     string
	saveDir   string
	output    string
	sheetPath string
	notifier  *notify.Notifier
	now       func() time.Time

	canvasOpts []canvas.Option

	mu           sync.Mutex
	frame        *image.RGBA
	message      string
	messageUntil time.Time

	updateCh chan struct{}
	err      error
}

// Option modifies a Window during creation.
type Option func(*Window)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option { return func(w *Window) { w.log = log } }

// WithTitle sets the window title.
func WithTitle(title string) Option { return func(w *Window) { w.title = title } }

// WithTheme sets the theme of the sheet and the window chrome.
func WithTheme(t *theme.Theme) Option {
	return func(w *Window) {
		if t != nil {
			w.theme = t
		}
	}
}

// WithSaveDir sets the directory of dated exports.
func WithSaveDir(dir string) Option { return func(w *Window) { w.saveDir = dir } }

// WithOutput sets a fixed export path, overriding the dated name.
func WithOutput(path string) Option { return func(w *Window) { w.output = path } }

// WithSheetPath sets the annotation file that is watched for changes and
// written on request.
func WithSheetPath(path string) Option { return func(w *Window) { w.sheetPath = path } }

// WithNotifier sets the desktop notifier.
func WithNotifier(n *notify.Notifier) Option { return func(w *Window) { w.notifier = n } }

// WithCanvasOptions passes options through to the canvas controller.
func WithCanvasOptions(opts ...canvas.Option) Option {
	return func(w *Window) { w.canvasOpts = append(w.canvasOpts, opts...) }
}

// New creates a Window and its controller.
func New(opts ...Option) *Window {
	w := &Window{
		theme:    theme.Default(),
		log:      zerolog.Nop(),
		title:    "Instruction Sheet",
		now:      time.Now,
		updateCh: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	copts := append(w.canvasOpts,
		canvas.WithTheme(w.theme),
		canvas.WithLogger(w.log),
		canvas.WithSurfaceListener(w.onSurface),
	)
	w.canvasOpts = nil
	w.ctrl = canvas.New(copts...)
	if s, ok := w.ctrl.Surface(); ok {
		w.onSurface(s)
	}
	return w
}

// Controller returns the canvas controller shown by the window.
func (w *Window) Controller() *canvas.Controller { return w.ctrl }

// Run opens the window and blocks until it is closed.
func (w *Window) Run() error {
	driver.Main(w.Main)
	return w.err
}

// onSurface keeps a private copy of every repaint for the paint loop, since
// async loads repaint from other goroutines.
func (w *Window) onSurface(img *image.RGBA) {
	w.mu.Lock()
	if img == nil {
		w.frame = nil
	} else {
		if w.frame == nil || w.frame.Bounds() != img.Bounds() {
			w.frame = image.NewRGBA(img.Bounds())
		}
		copy(w.frame.Pix, img.Pix)
	}
	w.mu.Unlock()
	w.invalidate()
}

func (w *Window) invalidate() {
	select {
	case w.updateCh <- struct{}{}:
	default:
	}
}

func (w *Window) say(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	w.log.Info().Msg(msg)
	w.mu.Lock()
	w.message = msg
	w.messageUntil = w.now().Add(messageTTL)
	w.mu.Unlock()
	w.invalidate()
}

type reloadEvent struct {
	list []sheet.Annotation
	err  error
}

func initialSize(s geom.Size) image.Point {
	if s.Empty() {
		return image.Pt(defaultWidth, defaultHeight)
	}
	return image.Pt(
		min(int(s.W)+2*margin, maxWidth),
		min(int(s.H)+2*margin+statusHeight, maxHeight),
	)
}

// Main runs the event loop on s.
func (w *Window) Main(s screen.Screen) {
	winSize := initialSize(w.ctrl.Size())
	win, err := s.NewWindow(&screen.NewWindowOptions{Width: winSize.X, Height: winSize.Y, Title: w.title})
	if err != nil {
		w.err = fmt.Errorf("new window: %w", err)
		return
	}
	defer win.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			select {
			case <-w.updateCh:
				win.Send(paint.Event{})
			case <-ctx.Done():
				return
			}
		}
	}()
	if w.sheetPath != "" {
		go func() {
			err := sheet.Watch(ctx, w.sheetPath, func(list []sheet.Annotation, err error) {
				win.Send(reloadEvent{list: list, err: err})
			})
			if err != nil && ctx.Err() == nil {
				w.log.Warn().Err(err).Str("path", w.sheetPath).Msg("watch failed")
			}
		}()
	}

	inside := false
	for {
		switch e := win.NextEvent().(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				return
			}
			if e.Crosses(lifecycle.StageFocused) == lifecycle.CrossOff {
				inside = false
				w.ctrl.PointerLeave()
			}
		case size.Event:
			winSize = e.Size()
			win.Send(paint.Event{})
		case paint.Event:
			w.drawFrame(s, win, winSize)
		case reloadEvent:
			w.reload(e)
		case mouse.Event:
			p, display, in := toDisplay(e.X, e.Y, imageRect(w.ctrl.Size(), winSize))
			if !in {
				if inside {
					inside = false
					w.ctrl.PointerLeave()
				}
				continue
			}
			inside = true
			switch e.Direction {
			case mouse.DirPress:
				if e.Button == mouse.ButtonLeft {
					w.ctrl.PointerDown(p, display)
				}
			case mouse.DirRelease:
				if e.Button == mouse.ButtonLeft {
					w.ctrl.PointerUp()
				}
			case mouse.DirNone:
				w.ctrl.PointerMove(p, display)
			}
		case key.Event:
			if w.perform(actionFor(e)) {
				return
			}
		case error:
			w.log.Error().Err(e).Msg("window event")
		}
	}
}

func (w *Window) reload(e reloadEvent) {
	if e.err != nil {
		w.say("reload %s: %v", w.sheetPath, e.err)
		return
	}
	if err := w.ctrl.SetAnnotations(e.list); err != nil {
		w.say("reload %s: %v", w.sheetPath, err)
		return
	}
	w.say("reloaded %d annotations", len(e.list))
}

func (w *Window) statusText() (left, right string) {
	w.mu.Lock()
	msg, until := w.message, w.messageUntil
	w.mu.Unlock()
	if msg != "" && w.now().Before(until) {
		left = msg
	} else if !w.ctrl.Ready() {
		left = "no image loaded, press v to paste one"
	} else {
		st := w.ctrl.Style()
		left = fmt.Sprintf("%d annotations | %gpx %s | arrows %s",
			len(w.ctrl.Annotations()), st.FontSize, st.FontFamily, st.ArrowColor)
	}
	return left, "s save  c copy  w write  p color  f font  q quit"
}

func (w *Window) drawFrame(s screen.Screen, win screen.Window, winSize image.Point) {
	if winSize.X <= 0 || winSize.Y <= 0 {
		return
	}
	b, err := s.NewBuffer(winSize)
	if err != nil {
		w.log.Error().Err(err).Msg("new buffer")
		return
	}
	defer b.Release()
	dst := b.RGBA()
	draw.Draw(dst, dst.Bounds(), image.NewUniform(w.theme.Background), image.Point{}, draw.Src)

	w.mu.Lock()
	if w.frame != nil {
		rect := imageRect(geom.SizeOf(w.frame.Bounds()), winSize)
		if !rect.Empty() {
			drawCheckerboard(dst, rect, checkerSize, w.theme.CheckerLight, w.theme.CheckerDark)
			xdraw.ApproxBiLinear.Scale(dst, rect, w.frame, w.frame.Bounds(), draw.Over, nil)
		}
	}
	w.mu.Unlock()

	left, right := w.statusText()
	drawStatus(dst, left, right, w.theme.StatusBackground, w.theme.StatusText)

	win.Upload(image.Point{}, b, b.Bounds())
	win.Publish()
}
