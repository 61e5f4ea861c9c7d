package intent

import (
	"errors"
	"sync"
	"testing"

	"go.viam.com/test"
)

func TestJoystickNext(t *testing.T) {
	js := NewJoystick()
	in, err := js.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in, test.ShouldResemble, Intent{Kind: KindJog})

	js.Update(90, 75)
	js.SetGrabbing(true)
	in, err = js.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in, test.ShouldResemble, Intent{Kind: KindJog, Angle: 90, Magnitude: 75, Grabbing: true})
	test.That(t, in.CarriesGrip(), test.ShouldBeTrue)
}

func TestJoystickConcurrentAccess(t *testing.T) {
	js := NewJoystick()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			js.Update(i%360, i%101)
			js.SetGrabbing(i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			angle, magnitude, _ := js.Snapshot()
			if angle < 0 || angle >= 360 || magnitude < 0 || magnitude > MaxMagnitude {
				t.Errorf("impossible sample %d#%d", angle, magnitude)
			}
		}
	}()
	wg.Wait()
}

func TestParseJoystickFrame(t *testing.T) {
	for _, tc := range []struct {
		frame     string
		angle     int
		magnitude int
	}{
		{"0#0", 0, 0},
		{"90#100", 90, 100},
		{"359#42\n", 359, 42},
		{"360#20", 0, 20},
		{"-90#50", 270, 50},
	} {
		t.Run(tc.frame, func(t *testing.T) {
			angle, magnitude, err := ParseJoystickFrame(tc.frame)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, angle, test.ShouldEqual, tc.angle)
			test.That(t, magnitude, test.ShouldEqual, tc.magnitude)
		})
	}

	for _, frame := range []string{"", "90", "a#10", "90#b", "90#101", "90#-1", "1.5#10"} {
		t.Run("bad "+frame, func(t *testing.T) {
			_, _, err := ParseJoystickFrame(frame)
			test.That(t, errors.Is(err, ErrMalformedIntent), test.ShouldBeTrue)
		})
	}
}
