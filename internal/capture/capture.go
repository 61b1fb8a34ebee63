// Package capture grabs screen pixels to use as the reference image of a
// sheet.
package capture

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"strconv"
	"strings"
)

var (
	errNoMonitors = errors.New("no monitors available")
	// ErrEmptyRegion is returned for a zero-area capture rectangle.
	ErrEmptyRegion = errors.New("region is empty")
)

// MonitorInfo is one connected output and its place on the desktop.
type MonitorInfo struct {
	Index   int
	Name    string
	Rect    image.Rectangle
	Primary bool
}

type backend interface {
	monitors() ([]MonitorInfo, error)
	// grab reads the root window inside rect. An empty rect means the
	// whole screen.
	grab(rect image.Rectangle) (*image.RGBA, error)
}

var active backend = x11Backend{}

// ListMonitors returns the connected monitors.
func ListMonitors() ([]MonitorInfo, error) {
	mons, err := active.monitors()
	if err != nil {
		return nil, err
	}
	if len(mons) == 0 {
		return nil, errNoMonitors
	}
	return mons, nil
}

// Screen captures the desktop. A non-empty display selector limits the
// capture to the matching monitor.
func Screen(display string) (*image.RGBA, error) {
	if strings.TrimSpace(display) == "" {
		return active.grab(image.Rectangle{})
	}
	mons, err := ListMonitors()
	if err != nil {
		return nil, err
	}
	mon, err := FindMonitor(mons, display)
	if err != nil {
		return nil, err
	}
	return active.grab(mon.Rect)
}

// Region captures a rectangle in global screen coordinates.
func Region(rect image.Rectangle) (*image.RGBA, error) {
	if rect.Empty() {
		return nil, ErrEmptyRegion
	}
	return active.grab(rect)
}

// ParseRect reads "x,y,w,h" into a rectangle.
func ParseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("region %q: want x,y,w,h", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("region %q: %w", s, ErrEmptyRegion)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

// FindMonitor picks one of monitors. The selector is "primary", an index
// with an optional leading #, or a case-insensitive part of the output
// name. An empty selector gives the first monitor.
func FindMonitor(monitors []MonitorInfo, selector string) (MonitorInfo, error) {
	if len(monitors) == 0 {
		return MonitorInfo{}, errNoMonitors
	}
	sel := strings.ToLower(strings.TrimSpace(selector))
	switch {
	case sel == "":
		return monitors[0], nil
	case sel == "primary":
		if i := slices.IndexFunc(monitors, func(m MonitorInfo) bool { return m.Primary }); i >= 0 {
			return monitors[i], nil
		}
		return monitors[0], nil
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(sel, "#")); err == nil {
		if n < 0 || n >= len(monitors) {
			return MonitorInfo{}, fmt.Errorf("monitor %d: only %d connected", n, len(monitors))
		}
		return monitors[n], nil
	}
	i := slices.IndexFunc(monitors, func(m MonitorInfo) bool {
		return strings.Contains(strings.ToLower(m.Name), sel)
	})
	if i < 0 {
		return MonitorInfo{}, fmt.Errorf("no monitor matches %q", selector)
	}
	return monitors[i], nil
}
