package interact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/example/instructsheet/internal/geom"
	"github.com/example/instructsheet/internal/sheet"
)

var size = geom.Size{W: 1000, H: 500}

func fixture() []sheet.Annotation {
	return []sheet.Annotation{
		{Number: 1, Label: "Trim left", ArrowStartX: 10, ArrowStartY: 10, TargetX: 30, TargetY: 30},
		{Number: 2, Label: "Sharpen", ArrowStartX: 60, ArrowStartY: 20, TargetX: 80, TargetY: 70},
	}
}

func TestDownOnHandleStartsDrag(t *testing.T) {
	anns := fixture()
	hover := &sheet.Handle{Index: 1, Kind: sheet.HandleStart}
	res := Transition(State{Hover: hover}, Event{Kind: PointerDown, Pos: r2.Vec{X: 300, Y: 150}}, anns, size, geom.DefaultTolerance)

	require.NotNil(t, res.State.Drag)
	assert.Equal(t, sheet.Handle{Index: 0, Kind: sheet.HandleTarget}, *res.State.Drag)
	assert.Nil(t, res.State.Hover)
	assert.True(t, res.Effects.Has(EffectRepaint))
	assert.False(t, res.Effects.Has(EffectNotify))
}

func TestDownOnEmptySpaceIsNoop(t *testing.T) {
	res := Transition(State{}, Event{Kind: PointerDown, Pos: r2.Vec{X: 500, Y: 450}}, fixture(), size, geom.DefaultTolerance)
	assert.Equal(t, State{}, res.State)
	assert.Zero(t, res.Effects)
}

func TestDragMovesOnlyReferencedPair(t *testing.T) {
	anns := fixture()
	s := State{Drag: &sheet.Handle{Index: 1, Kind: sheet.HandleStart}}
	res := Transition(s, Event{Kind: PointerMove, Pos: r2.Vec{X: 250, Y: 400}}, anns, size, geom.DefaultTolerance)

	assert.True(t, res.Effects.Has(EffectRepaint|EffectNotify))
	assert.Equal(t, anns[0], res.Annotations[0])
	assert.InDelta(t, 25, res.Annotations[1].ArrowStartX, 1e-9)
	assert.InDelta(t, 80, res.Annotations[1].ArrowStartY, 1e-9)
	assert.Equal(t, anns[1].TargetX, res.Annotations[1].TargetX)
	assert.Equal(t, anns[1].TargetY, res.Annotations[1].TargetY)
	assert.Equal(t, 60.0, anns[1].ArrowStartX, "input must not be mutated")
}

func TestDragClampsOutsideImage(t *testing.T) {
	s := State{Drag: &sheet.Handle{Index: 0, Kind: sheet.HandleTarget}}
	res := Transition(s, Event{Kind: PointerMove, Pos: r2.Vec{X: -50, Y: 9000}}, fixture(), size, geom.DefaultTolerance)
	assert.Equal(t, 0.0, res.Annotations[0].TargetX)
	assert.Equal(t, 100.0, res.Annotations[0].TargetY)
}

func TestDragWithStaleIndexIsDropped(t *testing.T) {
	anns := fixture()
	s := State{Drag: &sheet.Handle{Index: 5, Kind: sheet.HandleTarget}}
	res := Transition(s, Event{Kind: PointerMove, Pos: r2.Vec{X: 10, Y: 10}}, anns, size, geom.DefaultTolerance)
	assert.Nil(t, res.State.Drag)
	assert.False(t, res.Effects.Has(EffectNotify))
	assert.Equal(t, anns, res.Annotations)
}

func TestHoverRepaintsOnlyOnChange(t *testing.T) {
	anns := fixture()
	res := Transition(State{}, Event{Kind: PointerMove, Pos: r2.Vec{X: 600, Y: 100}}, anns, size, geom.DefaultTolerance)
	require.NotNil(t, res.State.Hover)
	assert.Equal(t, sheet.Handle{Index: 1, Kind: sheet.HandleStart}, *res.State.Hover)
	assert.Equal(t, EffectRepaint, res.Effects)

	res = Transition(res.State, Event{Kind: PointerMove, Pos: r2.Vec{X: 605, Y: 102}}, anns, size, geom.DefaultTolerance)
	assert.Zero(t, res.Effects)
	assert.NotNil(t, res.State.Hover)

	res = Transition(res.State, Event{Kind: PointerMove, Pos: r2.Vec{X: 500, Y: 450}}, anns, size, geom.DefaultTolerance)
	assert.Nil(t, res.State.Hover)
	assert.Equal(t, EffectRepaint, res.Effects)

	res = Transition(res.State, Event{Kind: PointerMove, Pos: r2.Vec{X: 510, Y: 440}}, anns, size, geom.DefaultTolerance)
	assert.Zero(t, res.Effects)
}

func TestUpIsIdempotent(t *testing.T) {
	s := State{Drag: &sheet.Handle{Index: 0, Kind: sheet.HandleStart}}
	res := Transition(s, Event{Kind: PointerUp}, fixture(), size, geom.DefaultTolerance)
	assert.Nil(t, res.State.Drag)
	assert.Equal(t, EffectRepaint, res.Effects)

	res = Transition(res.State, Event{Kind: PointerUp}, fixture(), size, geom.DefaultTolerance)
	assert.Nil(t, res.State.Drag)
	assert.Zero(t, res.Effects)
}

func TestLeaveClearsEverything(t *testing.T) {
	s := State{Hover: &sheet.Handle{Index: 1, Kind: sheet.HandleTarget}}
	res := Transition(s, Event{Kind: PointerLeave}, fixture(), size, geom.DefaultTolerance)
	assert.Equal(t, State{}, res.State)
	assert.Equal(t, EffectRepaint, res.Effects)

	s = State{Drag: &sheet.Handle{Index: 0, Kind: sheet.HandleTarget}}
	res = Transition(s, Event{Kind: PointerLeave}, fixture(), size, geom.DefaultTolerance)
	assert.Equal(t, State{}, res.State)

	res = Transition(State{}, Event{Kind: PointerLeave}, fixture(), size, geom.DefaultTolerance)
	assert.Zero(t, res.Effects)
}

func TestDownWhileDraggingRetargets(t *testing.T) {
	s := State{Drag: &sheet.Handle{Index: 0, Kind: sheet.HandleStart}}
	res := Transition(s, Event{Kind: PointerDown, Pos: r2.Vec{X: 800, Y: 350}}, fixture(), size, geom.DefaultTolerance)
	require.NotNil(t, res.State.Drag)
	assert.Equal(t, sheet.Handle{Index: 1, Kind: sheet.HandleTarget}, *res.State.Drag)
}
