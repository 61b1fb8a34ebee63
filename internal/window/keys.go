package window

import (
	"unicode"

	"golang.org/x/mobile/event/key"
)

type action int

const (
	actionNone action = iota
	actionSave
	actionCopy
	actionPaste
	actionWriteSheet
	actionFontUp
	actionFontDown
	actionNextColor
	actionNextFamily
	actionReset
	actionQuit
)

// Shortcut describes one key binding for help output.
type Shortcut struct {
	Key  string
	Help string
}

var shortcuts = []struct {
	r   rune
	act action
	Shortcut
}{
	{'s', actionSave, Shortcut{"s", "export the sheet as PNG"}},
	{'c', actionCopy, Shortcut{"c", "copy the sheet to the clipboard"}},
	{'v', actionPaste, Shortcut{"v", "load the clipboard image"}},
	{'w', actionWriteSheet, Shortcut{"w", "write the annotation file"}},
	{'+', actionFontUp, Shortcut{"+", "larger font"}},
	{'=', actionFontUp, Shortcut{}},
	{'-', actionFontDown, Shortcut{"-", "smaller font"}},
	{'p', actionNextColor, Shortcut{"p", "next arrow color"}},
	{'f', actionNextFamily, Shortcut{"f", "next font family"}},
	{'r', actionReset, Shortcut{"r", "drop all annotations"}},
	{'q', actionQuit, Shortcut{"q", "quit"}},
}

// Shortcuts lists the key bindings of the window.
func Shortcuts() []Shortcut {
	out := make([]Shortcut, 0, len(shortcuts))
	for _, s := range shortcuts {
		if s.Key != "" {
			out = append(out, s.Shortcut)
		}
	}
	return out
}

// actionFor maps a key press to an action. Modifier chords other than
// shift are ignored so system shortcuts pass through.
func actionFor(e key.Event) action {
	if e.Direction != key.DirPress {
		return actionNone
	}
	if e.Code == key.CodeEscape {
		return actionQuit
	}
	if e.Modifiers&^key.ModShift != 0 {
		return actionNone
	}
	r := unicode.ToLower(e.Rune)
	for _, s := range shortcuts {
		if s.r == r {
			return s.act
		}
	}
	return actionNone
}
