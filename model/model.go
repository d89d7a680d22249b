package model

import "time"

// Checkpoint is the persisted progress marker of a stage. Height moves
// forward on execution and backward on unwind; Aux carries stage-specific
// state the harness never interprets.
type Checkpoint struct {
	Height    uint64    `json:"height"`
	Aux       []byte    `json:"aux,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Direction string

const (
	Forward Direction = "forward"
	Unwind  Direction = "unwind"
)

// RunTarget is the operator's request for a single run. It is built once
// from CLI input and never mutated while the run is live.
type RunTarget struct {
	Stage     string
	Direction Direction
	Height    uint64
	// BatchSize overrides the configured commit threshold when non-zero.
	BatchSize uint64
}

// ProgressSnapshot is a point-in-time view of a run, published after every
// committed batch. Snapshots supersede each other; observers only ever need
// the latest one.
type ProgressSnapshot struct {
	Stage       string
	Direction   Direction
	StartHeight uint64
	Height      uint64
	Target      uint64
	Entities    uint64
	Batches     uint64
	Elapsed     time.Duration
	PerSecond   float64
}

type RunStatus int

const (
	StatusCompleted RunStatus = iota
	StatusCancelled
	StatusFailed
)

func (s RunStatus) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// RunOutcome is the terminal result of a run, constructed exactly once by
// the controller after both the loop and the renderer have stopped.
type RunOutcome struct {
	Stage       string
	Direction   Direction
	Status      RunStatus
	StartHeight uint64
	EndHeight   uint64
	Entities    uint64
	Batches     uint64
	Elapsed     time.Duration
	Err         error
}
