package geom

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/example/instructsheet/internal/sheet"
)

// DefaultTolerance is the pick radius in backing pixels.
const DefaultTolerance = 20.0

// FindHandleAt returns the handle nearest the top of the stacking order that
// lies within tol of p. Later annotations are drawn on top, so they are
// tested first, and within one annotation the start anchor wins over the
// target.
func FindHandleAt(p r2.Vec, anns []sheet.Annotation, s Size, tol float64) (sheet.Handle, bool) {
	for i := len(anns) - 1; i >= 0; i-- {
		if r2.Norm(r2.Sub(Start(anns[i], s), p)) <= tol {
			return sheet.Handle{Index: i, Kind: sheet.HandleStart}, true
		}
		if r2.Norm(r2.Sub(Target(anns[i], s), p)) <= tol {
			return sheet.Handle{Index: i, Kind: sheet.HandleTarget}, true
		}
	}
	return sheet.Handle{}, false
}
