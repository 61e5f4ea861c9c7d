package workspace

import (
	"math"

	"github.com/golang/geo/r2"
)

// Mapper turns operator intent into a new target point.
type Mapper struct {
	sensitivity float64
	deadzone    r2.Rect
}

// NewMapper returns a Mapper. sensitivity is the displacement per unit of magnitude for a single
// control tick.
func NewMapper(sensitivity float64, deadzone r2.Rect) *Mapper {
	return &Mapper{sensitivity: sensitivity, deadzone: deadzone}
}

// Deadzone returns the forbidden rectangle.
func (m *Mapper) Deadzone() r2.Rect {
	return m.deadzone
}

// MapIntent displaces current by magnitude in the direction angleDeg (counterclockwise from +x)
// and resolves the result against the deadzone.
func (m *Mapper) MapIntent(angleDeg, magnitude int, current r2.Point) r2.Point {
	rad := float64(angleDeg) * math.Pi / 180.0
	step := float64(magnitude) * m.sensitivity
	candidate := current.Add(r2.Point{X: step * math.Cos(rad), Y: step * math.Sin(rad)})
	return ResolveDeadzone(current, candidate, m.deadzone)
}

// MoveTo resolves an absolute target against the deadzone, treating current as the point the
// move starts from.
func (m *Mapper) MoveTo(current, target r2.Point) r2.Point {
	return ResolveDeadzone(current, target, m.deadzone)
}
