package intent

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Job types understood by ParseJob.
const (
	JobTypeCoords = "coords"
	JobTypeGrip   = "grip"
)

// ErrQueueFull is returned by JobQueue.Enqueue when the queue is at capacity.
var ErrQueueFull = errors.New("job queue is full")

type rawJob struct {
	Type  string           `json:"type"`
	X     *float64         `json:"x"`
	Y     *float64         `json:"y"`
	State *json.RawMessage `json:"state"`
}

// ParseJob turns a JSON job message into an Intent. Coordinate jobs look like
// {"type":"coords","x":1.5,"y":12} and grip jobs like {"type":"grip","state":"on"}. A grip state
// may also be a boolean or 0/1.
func ParseJob(data []byte) (Intent, error) {
	var job rawJob
	if err := json.Unmarshal(data, &job); err != nil {
		return Intent{}, errors.Wrapf(ErrMalformedIntent, "decoding job: %v", err)
	}

	switch job.Type {
	case JobTypeCoords:
		if job.X == nil || job.Y == nil {
			return Intent{}, errors.Wrap(ErrMalformedIntent, "coords job needs both x and y")
		}
		return Intent{Kind: KindMoveTo, Point: r2.Point{X: *job.X, Y: *job.Y}}, nil
	case JobTypeGrip:
		if job.State == nil {
			return Intent{}, errors.Wrap(ErrMalformedIntent, "grip job has no state")
		}
		grabbing, err := parseGripState(*job.State)
		if err != nil {
			return Intent{}, err
		}
		return Intent{Kind: KindGrip, Grabbing: grabbing}, nil
	default:
		return Intent{}, errors.Wrapf(ErrMalformedIntent, "unknown job type %q", job.Type)
	}
}

func parseGripState(raw json.RawMessage) (bool, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, errors.Wrapf(ErrMalformedIntent, "grip state: %v", err)
	}
	switch state := v.(type) {
	case bool:
		return state, nil
	case float64:
		switch state {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case string:
		switch strings.ToLower(state) {
		case "on", "1", "true":
			return true, nil
		case "off", "0", "false":
			return false, nil
		}
	}
	return false, errors.Wrapf(ErrMalformedIntent, "unknown grip state %s", string(raw))
}

// JobQueue is a bounded FIFO of raw job messages. Jobs are parsed when dequeued so a bad job is
// reported on the tick that would have run it.
type JobQueue struct {
	mu       sync.Mutex
	jobs     [][]byte
	capacity int
}

// NewJobQueue returns an empty queue holding at most capacity jobs.
func NewJobQueue(capacity int) *JobQueue {
	return &JobQueue{capacity: capacity}
}

// Enqueue appends a job message. The message is copied.
func (q *JobQueue) Enqueue(job []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) >= q.capacity {
		return ErrQueueFull
	}
	q.jobs = append(q.jobs, append([]byte(nil), job...))
	return nil
}

// Len returns the number of queued jobs.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *JobQueue) dequeue() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, false
	}
	job := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	return job, true
}

// Next implements Source by dequeuing and parsing at most one job.
func (q *JobQueue) Next() (Intent, error) {
	job, ok := q.dequeue()
	if !ok {
		return Intent{Kind: KindIdle}, nil
	}
	return ParseJob(job)
}
