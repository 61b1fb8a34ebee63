package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/example/instructsheet/internal/theme"
)

const (
	DefaultFontSize   = 14.0
	DefaultFontFamily = "sans-serif"
	MinFontSize       = 6.0
	MaxFontSize       = 128.0

	// MinArrowHead keeps the arrowhead visible at the smallest font sizes.
	MinArrowHead = 4.0

	lineWidth        = 2.0
	lineWidthActive  = 4.0
	handleRadius     = 8.0
	startRingWidth   = 2.0
	labelGap         = 4.0
	labelCornerRadii = 4.0
)

// ArrowColor selects either one fixed color for every annotation or the
// palette cycle indexed by annotation position. The zero value cycles.
type ArrowColor struct {
	fixed bool
	c     color.NRGBA
}

// Cycle returns the palette cycle mode.
func Cycle() ArrowColor { return ArrowColor{} }

// Fixed returns a single color mode.
func Fixed(c color.NRGBA) ArrowColor { return ArrowColor{fixed: true, c: c} }

// IsCycle reports whether the palette cycle is used.
func (a ArrowColor) IsCycle() bool { return !a.fixed }

// At returns the color of the annotation at index i.
func (a ArrowColor) At(i int, palette [theme.PaletteSize]color.NRGBA) color.NRGBA {
	if a.fixed {
		return a.c
	}
	if i < 0 {
		i = -i
	}
	return palette[i%theme.PaletteSize]
}

func (a ArrowColor) String() string {
	if !a.fixed {
		return "cycle"
	}
	return theme.Hex(a.c)
}

// MarshalText implements encoding.TextMarshaler.
func (a ArrowColor) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ArrowColor) UnmarshalText(b []byte) error {
	v, err := ParseArrowColor(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseArrowColor accepts "cycle" (or "rainbow", "auto", empty), a CSS color
// name or a hex color.
func ParseArrowColor(s string) (ArrowColor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cycle", "rainbow", "auto":
		return Cycle(), nil
	}
	c, err := theme.ParseColor(s)
	if err != nil {
		return ArrowColor{}, fmt.Errorf("arrow color: %w", err)
	}
	return Fixed(c), nil
}

// ArrowPresets lists the arrow colors offered by the interactive window, in
// the order they are stepped through.
func ArrowPresets() []ArrowColor {
	out := []ArrowColor{Cycle()}
	for _, c := range theme.DefaultPalette() {
		out = append(out, Fixed(c))
	}
	return append(out, Fixed(color.NRGBA{0x33, 0x33, 0x33, 0xff}))
}

// Style is the user adjustable part of the rendering.
type Style struct {
	FontSize   float64
	FontFamily string
	ArrowColor ArrowColor
}

// DefaultStyle returns 14px sans-serif with cycling colors.
func DefaultStyle() Style {
	return Style{FontSize: DefaultFontSize, FontFamily: DefaultFontFamily, ArrowColor: Cycle()}
}

// Normalized returns s with the font size clamped to [MinFontSize,
// MaxFontSize] and an empty family replaced by the default.
func (s Style) Normalized() Style {
	switch {
	case math.IsNaN(s.FontSize) || s.FontSize <= 0:
		s.FontSize = DefaultFontSize
	case s.FontSize < MinFontSize:
		s.FontSize = MinFontSize
	case s.FontSize > MaxFontSize:
		s.FontSize = MaxFontSize
	}
	if strings.TrimSpace(s.FontFamily) == "" {
		s.FontFamily = DefaultFontFamily
	}
	return s
}

// ArrowHeadLength returns the arrowhead length for a font size.
func ArrowHeadLength(fontSize float64) float64 {
	return math.Max(12+(fontSize-14)*0.5, MinArrowHead)
}

// StartRadius returns the radius of the numbered start marker.
func StartRadius(fontSize float64) float64 {
	return fontSize + 4
}
