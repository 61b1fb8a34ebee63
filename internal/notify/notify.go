// Package notify turns export, copy and analysis events into desktop
// notifications.
package notify

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/instructsheet/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventExport fires when a flattened sheet is written to disk.
	EventExport Event = "export"
	// EventCopy fires when the sheet is placed on the clipboard.
	EventCopy Event = "copy"
	// EventAnalyze fires when the model returned annotations.
	EventAnalyze Event = "analyze"
)

// EventPreference describes formatting for a notification event.
type EventPreference struct {
	Template string
}

// Preferences describes notification behaviour loaded from configuration.
type Preferences struct {
	Title   string
	Timeout time.Duration
	Events  map[Event]EventPreference
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title:   "Instruction Sheet",
		Timeout: 5 * time.Second,
		Events: map[Event]EventPreference{
			EventExport:  {Template: "Exported %s"},
			EventCopy:    {Template: "Copied %s to clipboard"},
			EventAnalyze: {Template: "Placed %s"},
		},
	}
}

// LoadPreferences applies INSTRUCTSHEET_NOTIFY_* overrides read through
// getenv on top of the defaults.
func LoadPreferences(getenv func(string) string) Preferences {
	prefs := DefaultPreferences()
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv("INSTRUCTSHEET_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	apply := func(key string, event Event) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			p := prefs.Events[event]
			p.Template = v
			prefs.Events[event] = p
		}
	}
	apply("INSTRUCTSHEET_NOTIFY_EXPORT_TEXT", EventExport)
	apply("INSTRUCTSHEET_NOTIFY_COPY_TEXT", EventCopy)
	apply("INSTRUCTSHEET_NOTIFY_ANALYZE_TEXT", EventAnalyze)
	return prefs
}

// Sender delivers one notification.
type Sender func(title, body string, opts platform.Options) (uint32, error)

// Notifier sends OS-level notifications based on the configured preferences.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
	send    Sender
	log     zerolog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger used for delivery failures.
func WithLogger(log zerolog.Logger) Option {
	return func(n *Notifier) { n.log = log }
}

// WithSender replaces the platform delivery function.
func WithSender(s Sender) Option {
	return func(n *Notifier) {
		if s != nil {
			n.send = s
		}
	}
}

// New creates a new Notifier using the provided preferences. Every event
// starts disabled.
func New(prefs Preferences, opts ...Option) *Notifier {
	cloned := Preferences{Title: prefs.Title, Timeout: prefs.Timeout, Events: make(map[Event]EventPreference, len(prefs.Events))}
	for k, v := range prefs.Events {
		cloned.Events[k] = v
	}
	n := &Notifier{
		prefs:   cloned,
		enabled: make(map[Event]bool),
		send:    platform.Notify,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	n.enabled[event] = enabled
}

// Enabled reports whether event produces notifications.
func (n *Notifier) Enabled(event Event) bool {
	return n != nil && n.enabled[event]
}

// Export reports a written sheet, showing the file itself as icon.
func (n *Notifier) Export(path string) {
	if !n.Enabled(EventExport) {
		return
	}
	detail := strings.TrimSpace(path)
	opts := n.options()
	if abs, err := filepath.Abs(path); err == nil {
		detail = abs
		if _, statErr := os.Stat(abs); statErr == nil {
			opts.IconPath = abs
		}
	}
	n.dispatch(EventExport, detail, opts)
}

// Copy reports a clipboard copy.
func (n *Notifier) Copy(detail string) {
	if !n.Enabled(EventCopy) {
		return
	}
	if strings.TrimSpace(detail) == "" {
		detail = "instruction sheet"
	}
	n.dispatch(EventCopy, detail, n.options())
}

// Analyze reports how many annotations the model placed, with an optional
// preview of the rendered sheet.
func (n *Notifier) Analyze(count int, preview image.Image) {
	if !n.Enabled(EventAnalyze) {
		return
	}
	opts := n.options()
	if preview != nil {
		if path, cleanup, err := n.createPreview(preview); err != nil {
			n.log.Warn().Err(err).Msg("notification preview")
		} else {
			defer cleanup()
			opts.IconPath = path
		}
	}
	detail := strconv.Itoa(count) + " annotations"
	if count == 1 {
		detail = "1 annotation"
	}
	n.dispatch(EventAnalyze, detail, opts)
}

func (n *Notifier) options() platform.Options {
	return platform.Options{Timeout: n.prefs.Timeout, Urgency: platform.UrgencyNormal}
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	tmpl := strings.TrimSpace(n.prefs.Events[event].Template)
	if tmpl == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(tmpl, strings.TrimSpace(detail)))
	if body == "" {
		return
	}
	if _, err := n.send(n.prefs.Title, body, opts); err != nil {
		n.log.Warn().Err(err).Str("event", string(event)).Msg("notification failed")
	}
}

func (n *Notifier) createPreview(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "instructsheet-preview-*.png")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			n.log.Warn().Err(err).Str("path", path).Msg("remove preview")
		}
	}
	return path, cleanup, nil
}
