// Package sheet holds the annotation model shared by the canvas, the render
// engine and the inference adapter.
package sheet

import (
	"errors"
	"fmt"
	"math"
)

// MinCoord and MaxCoord bound every normalized coordinate.
const (
	MinCoord = 0.0
	MaxCoord = 100.0
)

// ErrNonFinite reports a coordinate that is NaN or infinite.
var ErrNonFinite = errors.New("coordinate is not a finite number")

// Annotation is one numbered correction marker. Coordinates are percentages
// of the image width and height.
type Annotation struct {
	Number      int     `json:"number"`
	Label       string  `json:"label"`
	TargetX     float64 `json:"targetX"`
	TargetY     float64 `json:"targetY"`
	ArrowStartX float64 `json:"arrowStartX"`
	ArrowStartY float64 `json:"arrowStartY"`
}

// HandleKind selects one of the two interactive points of an annotation.
type HandleKind int

const (
	HandleStart HandleKind = iota
	HandleTarget
)

func (k HandleKind) String() string {
	switch k {
	case HandleStart:
		return "start"
	case HandleTarget:
		return "target"
	default:
		return fmt.Sprintf("HandleKind(%d)", int(k))
	}
}

// Handle addresses a handle by list index. Number is never used for
// addressing since it is not guaranteed unique.
type Handle struct {
	Index int
	Kind  HandleKind
}

// Is reports whether h points at the given index and kind. A nil handle
// matches nothing.
func (h *Handle) Is(index int, kind HandleKind) bool {
	return h != nil && h.Index == index && h.Kind == kind
}

// On reports whether h points at either handle of the given index.
func (h *Handle) On(index int) bool {
	return h != nil && h.Index == index
}

// Clamp limits v to [MinCoord, MaxCoord]. NaN collapses to MinCoord.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < MinCoord {
		return MinCoord
	}
	if v > MaxCoord {
		return MaxCoord
	}
	return v
}

// Validate checks that all four coordinates are finite.
func (a Annotation) Validate() error {
	fields := [...]struct {
		name string
		v    float64
	}{
		{"targetX", a.TargetX},
		{"targetY", a.TargetY},
		{"arrowStartX", a.ArrowStartX},
		{"arrowStartY", a.ArrowStartY},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("annotation %d %s: %w", a.Number, f.name, ErrNonFinite)
		}
	}
	return nil
}

// Clamped returns a copy with every coordinate forced into range.
func (a Annotation) Clamped() Annotation {
	a.TargetX = Clamp(a.TargetX)
	a.TargetY = Clamp(a.TargetY)
	a.ArrowStartX = Clamp(a.ArrowStartX)
	a.ArrowStartY = Clamp(a.ArrowStartY)
	return a
}

// WithStart returns a copy with the start anchor moved to (x, y).
func (a Annotation) WithStart(x, y float64) Annotation {
	a.ArrowStartX = Clamp(x)
	a.ArrowStartY = Clamp(y)
	return a
}

// WithTarget returns a copy with the target point moved to (x, y).
func (a Annotation) WithTarget(x, y float64) Annotation {
	a.TargetX = Clamp(x)
	a.TargetY = Clamp(y)
	return a
}

// Move returns a copy with the coordinate pair addressed by kind replaced.
func (a Annotation) Move(kind HandleKind, x, y float64) Annotation {
	if kind == HandleStart {
		return a.WithStart(x, y)
	}
	return a.WithTarget(x, y)
}

// Replace returns a new list where entry i is a and every other entry is
// copied unchanged. An out of range index returns a plain copy.
func Replace(list []Annotation, i int, a Annotation) []Annotation {
	out := make([]Annotation, len(list))
	copy(out, list)
	if i >= 0 && i < len(out) {
		out[i] = a
	}
	return out
}

// Normalize validates and clamps every entry of list, returning a new slice.
func Normalize(list []Annotation) ([]Annotation, error) {
	out := make([]Annotation, 0, len(list))
	for i, a := range list {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if a.Number <= 0 {
			a.Number = i + 1
		}
		out = append(out, a.Clamped())
	}
	return out, nil
}
