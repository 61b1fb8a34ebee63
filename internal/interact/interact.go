// Package interact implements the pointer state machine behind the
// annotation canvas. Transition is pure: it never touches the image or the
// screen, it only reports what the caller has to do next.
package interact

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/example/instructsheet/internal/geom"
	"github.com/example/instructsheet/internal/sheet"
)

// State is the current pointer state. At most one of Drag and Hover is
// meaningful at a time: while a drag is active Hover stays nil.
type State struct {
	Drag  *sheet.Handle
	Hover *sheet.Handle
}

// Dragging reports whether a drag is active.
func (s State) Dragging() bool { return s.Drag != nil }

// Kind names a pointer event.
type Kind int

const (
	PointerDown Kind = iota
	PointerMove
	PointerUp
	PointerLeave
)

func (k Kind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerLeave:
		return "leave"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is a pointer event with its position in backing pixels. Pos is
// ignored for PointerUp and PointerLeave.
type Event struct {
	Kind Kind
	Pos  r2.Vec
}

// Effect is a bit set of follow-up actions.
type Effect uint8

const (
	// EffectRepaint asks the caller to redraw the surface.
	EffectRepaint Effect = 1 << iota
	// EffectNotify asks the caller to publish the new annotation list.
	EffectNotify
)

// Has reports whether all bits of f are set in e.
func (e Effect) Has(f Effect) bool { return e&f == f }

// Result is the outcome of one transition. Annotations is the input slice
// unless EffectNotify is set, in which case it is a fresh copy.
type Result struct {
	State       State
	Annotations []sheet.Annotation
	Effects     Effect
}

// Transition applies ev to s. size is the backing image size and tol the
// hit radius in backing pixels.
func Transition(s State, ev Event, anns []sheet.Annotation, size geom.Size, tol float64) Result {
	res := Result{State: s, Annotations: anns}
	switch ev.Kind {
	case PointerDown:
		h, ok := geom.FindHandleAt(ev.Pos, anns, size, tol)
		if !ok {
			return res
		}
		res.State = State{Drag: &h}
		res.Effects = EffectRepaint

	case PointerMove:
		if s.Drag != nil {
			if s.Drag.Index < 0 || s.Drag.Index >= len(anns) {
				// the list was replaced underneath the drag
				res.State = State{}
				res.Effects = EffectRepaint
				return res
			}
			n := geom.ToNormalized(ev.Pos, size)
			a := anns[s.Drag.Index].Move(s.Drag.Kind, n.X, n.Y)
			res.Annotations = sheet.Replace(anns, s.Drag.Index, a)
			res.Effects = EffectNotify | EffectRepaint
			return res
		}
		var hover *sheet.Handle
		if h, ok := geom.FindHandleAt(ev.Pos, anns, size, tol); ok {
			hover = &h
		}
		if !sameHandle(hover, s.Hover) {
			res.State.Hover = hover
			res.Effects = EffectRepaint
		}

	case PointerUp:
		if s.Drag != nil {
			res.State.Drag = nil
			res.Effects = EffectRepaint
		}

	case PointerLeave:
		if s.Drag != nil || s.Hover != nil {
			res.State = State{}
			res.Effects = EffectRepaint
		}
	}
	return res
}

func sameHandle(a, b *sheet.Handle) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
