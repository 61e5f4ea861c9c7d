package workspace

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestMapIntent(t *testing.T) {
	m := NewMapper(0.01, testRect)
	start := r2.Point{X: 6, Y: 18.1}

	got := m.MapIntent(0, 100, start)
	test.That(t, got.X, test.ShouldAlmostEqual, 7.0)
	test.That(t, got.Y, test.ShouldAlmostEqual, 18.1)

	got = m.MapIntent(90, 50, start)
	test.That(t, got.X, test.ShouldAlmostEqual, 6.0)
	test.That(t, got.Y, test.ShouldAlmostEqual, 18.6)

	got = m.MapIntent(225, 0, start)
	test.That(t, got, test.ShouldResemble, start)
}

func TestMapIntentSlidesAlongDeadzone(t *testing.T) {
	m := NewMapper(0.01, testRect)

	// Heading mostly down into the top edge keeps x moving but pins y to the edge.
	p := r2.Point{X: 0, Y: 7.0}
	for i := 0; i < 10; i++ {
		p = m.MapIntent(300, 100, p)
		test.That(t, m.Deadzone().InteriorContainsPoint(p), test.ShouldBeFalse)
	}
	test.That(t, p.Y, test.ShouldEqual, 7.0)
	test.That(t, p.X, test.ShouldAlmostEqual, 5.0, 1e-9)
}

func TestMoveTo(t *testing.T) {
	m := NewMapper(0.01, testRect)

	target := r2.Point{X: 10, Y: 10}
	test.That(t, m.MoveTo(r2.Point{X: 6, Y: 18.1}, target), test.ShouldResemble, target)

	// A jump into the zone is pushed back on the dominant axis.
	got := m.MoveTo(r2.Point{X: 0, Y: 15}, r2.Point{X: 1, Y: 0})
	test.That(t, got, test.ShouldResemble, r2.Point{X: 1, Y: 7.0})
}
