package intent

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestParseJob(t *testing.T) {
	in, err := ParseJob([]byte(`{"type":"coords","x":6.0,"y":18.1}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in, test.ShouldResemble, Intent{Kind: KindMoveTo, Point: r2.Point{X: 6, Y: 18.1}})
	test.That(t, in.CarriesGrip(), test.ShouldBeFalse)

	for _, tc := range []struct {
		job      string
		grabbing bool
	}{
		{`{"type":"grip","state":"on"}`, true},
		{`{"type":"grip","state":"off"}`, false},
		{`{"type":"grip","state":"ON"}`, true},
		{`{"type":"grip","state":true}`, true},
		{`{"type":"grip","state":false}`, false},
		{`{"type":"grip","state":1}`, true},
		{`{"type":"grip","state":0}`, false},
	} {
		t.Run(tc.job, func(t *testing.T) {
			in, err := ParseJob([]byte(tc.job))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, in.Kind, test.ShouldEqual, KindGrip)
			test.That(t, in.Grabbing, test.ShouldEqual, tc.grabbing)
		})
	}
}

func TestParseJobMalformed(t *testing.T) {
	for _, job := range []string{
		``,
		`not json`,
		`{"type":"coords","x":1}`,
		`{"type":"coords","x":"1","y":2}`,
		`{"type":"grip"}`,
		`{"type":"grip","state":"maybe"}`,
		`{"type":"grip","state":2}`,
		`{"type":"dance"}`,
		`{"x":1,"y":2}`,
	} {
		t.Run(job, func(t *testing.T) {
			_, err := ParseJob([]byte(job))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, errors.Is(err, ErrMalformedIntent), test.ShouldBeTrue)
		})
	}
}

func TestJobQueue(t *testing.T) {
	q := NewJobQueue(2)

	in, err := q.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in.Kind, test.ShouldEqual, KindIdle)

	test.That(t, q.Enqueue([]byte(`{"type":"coords","x":1,"y":10}`)), test.ShouldBeNil)
	test.That(t, q.Enqueue([]byte(`{"type":"bogus"}`)), test.ShouldBeNil)
	test.That(t, q.Enqueue([]byte(`{"type":"grip","state":"on"}`)), test.ShouldEqual, ErrQueueFull)
	test.That(t, q.Len(), test.ShouldEqual, 2)

	in, err = q.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in.Point, test.ShouldResemble, r2.Point{X: 1, Y: 10})

	_, err = q.Next()
	test.That(t, errors.Is(err, ErrMalformedIntent), test.ShouldBeTrue)

	in, err = q.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in.Kind, test.ShouldEqual, KindIdle)
	test.That(t, q.Len(), test.ShouldEqual, 0)
}

func TestJobQueueCopiesInput(t *testing.T) {
	q := NewJobQueue(1)
	buf := []byte(`{"type":"coords","x":1,"y":10}`)
	test.That(t, q.Enqueue(buf), test.ShouldBeNil)
	copy(buf, `xxxxxxxxxx`)

	in, err := q.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in.Kind, test.ShouldEqual, KindMoveTo)
}

func TestJobQueueConcurrentProducers(t *testing.T) {
	q := NewJobQueue(100)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				job := fmt.Sprintf(`{"type":"coords","x":%d,"y":%d}`, p, i)
				if err := q.Enqueue([]byte(job)); err != nil {
					t.Error(err)
				}
			}
		}(p)
	}
	wg.Wait()
	test.That(t, q.Len(), test.ShouldEqual, 100)

	seen := 0
	for {
		in, err := q.Next()
		test.That(t, err, test.ShouldBeNil)
		if in.Kind == KindIdle {
			break
		}
		seen++
	}
	test.That(t, seen, test.ShouldEqual, 100)
}
