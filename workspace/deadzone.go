// Package workspace maps operator intent onto the arm's planar workspace and keeps the target
// point out of the region around the arm's own base.
package workspace

import (
	"math"

	"github.com/golang/geo/r2"
)

// ResolveDeadzone keeps a target point from entering rect. A candidate on or outside the
// rectangle's boundary is returned unchanged. A candidate strictly inside is pushed back to the
// edge it crossed, chosen along the axis that dominates the displacement from old: moving
// towards +x snaps to the low x edge, moving towards -x to the high x edge, and likewise for y.
// The other coordinate is kept, so the point slides along the boundary.
func ResolveDeadzone(old, candidate r2.Point, rect r2.Rect) r2.Point {
	if !rect.InteriorContainsPoint(candidate) {
		return candidate
	}

	delta := candidate.Sub(old)
	if math.Abs(delta.X) > math.Abs(delta.Y) {
		if delta.X > 0 {
			candidate.X = rect.X.Lo
		} else {
			candidate.X = rect.X.Hi
		}
		return candidate
	}

	if delta.Y > 0 {
		candidate.Y = rect.Y.Lo
	} else {
		candidate.Y = rect.Y.Hi
	}
	return candidate
}
