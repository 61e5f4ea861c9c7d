// Package control runs the fixed rate loop that turns operator intents into motor commands.
package control

import (
	"time"

	"github.com/golang/geo/r2"
)

// State is the lifecycle stage of a Loop.
type State int32

// The loop moves through these states in order and never goes back.
const (
	StateAwaitingReady State = iota
	StateRunning
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateAwaitingReady:
		return "awaiting_ready"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// MarshalText lets State render as its name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a point in time view of the loop for display.
type Status struct {
	State     State     `json:"state"`
	Target    r2.Point  `json:"target"`
	AngleA    float64   `json:"angle_a_deg"`
	AngleB    float64   `json:"angle_b_deg"`
	Reachable bool      `json:"reachable"`
	Grabbing  bool      `json:"grabbing"`
	Ticks     uint64    `json:"ticks"`
	Overruns  uint64    `json:"overruns"`
	LastAck   string    `json:"last_ack,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
