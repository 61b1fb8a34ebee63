// Package theme holds the colors used to draw instruction sheets and the
// interactive window around them.
package theme

import (
	"image/color"
)

// PaletteSize is the number of colors in the arrow cycle.
const PaletteSize = 8

// Theme defines the colors of everything drawn on top of the source image
// plus the window chrome.
type Theme struct {
	Name string

	// Sheet
	LabelBackground color.NRGBA // Label box fill
	LabelText       color.NRGBA
	MarkerText      color.NRGBA // Number inside the start marker
	HandleFill      color.NRGBA // Target handle disk while hovered or dragged
	StartRing       color.NRGBA // Ring around a hovered start marker

	// Arrow cycle used when the arrow color is "cycle"
	Palette [PaletteSize]color.NRGBA

	// Window
	Background       color.NRGBA // Letterbox around the image
	StatusBackground color.NRGBA
	StatusText       color.NRGBA
	CheckerLight     color.NRGBA
	CheckerDark      color.NRGBA
}

// DefaultPalette returns the eight arrow colors in cycle order: red, orange,
// yellow, green, cyan, blue, violet and pink.
func DefaultPalette() [PaletteSize]color.NRGBA {
	return [PaletteSize]color.NRGBA{
		{0xef, 0x44, 0x44, 0xff},
		{0xf9, 0x73, 0x16, 0xff},
		{0xea, 0xb3, 0x08, 0xff},
		{0x22, 0xc5, 0x5e, 0xff},
		{0x06, 0xb6, 0xd4, 0xff},
		{0x3b, 0x82, 0xf6, 0xff},
		{0x8b, 0x5c, 0xf6, 0xff},
		{0xec, 0x48, 0x99, 0xff},
	}
}

// Default returns the built-in theme (fallback).
func Default() *Theme {
	return &Theme{
		Name:             "Default",
		LabelBackground:  color.NRGBA{0, 0, 0, 191},
		LabelText:        color.NRGBA{255, 255, 255, 255},
		MarkerText:       color.NRGBA{255, 255, 255, 255},
		HandleFill:       color.NRGBA{255, 255, 255, 128},
		StartRing:        color.NRGBA{255, 255, 255, 255},
		Palette:          DefaultPalette(),
		Background:       color.NRGBA{48, 48, 48, 255},
		StatusBackground: color.NRGBA{220, 220, 220, 255},
		StatusText:       color.NRGBA{0, 0, 0, 255},
		CheckerLight:     color.NRGBA{220, 220, 220, 255},
		CheckerDark:      color.NRGBA{192, 192, 192, 255},
	}
}
