package jobs

import (
	"strings"
	"time"
)

// State is the lifecycle position of a render job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateRejected  State = "rejected"
	StateCancelled State = "cancelled"
)

var allStates = []State{
	StateQueued,
	StateRunning,
	StateCompleted,
	StateFailed,
	StateRejected,
	StateCancelled,
}

// InterruptedReason is recorded on jobs left running by a process that died.
const InterruptedReason = "Render interrupted before completion"

// AllStates returns every state in lifecycle order.
func AllStates() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// ParseState normalizes a user-provided state name.
func ParseState(value string) (State, bool) {
	candidate := State(strings.ToLower(strings.TrimSpace(value)))
	for _, state := range allStates {
		if state == candidate {
			return state, true
		}
	}
	return "", false
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateRejected, StateCancelled:
		return true
	default:
		return false
	}
}

// Job is one persisted render.
type Job struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	SourcePath    string    `json:"source_path"`
	State         State     `json:"state"`
	TotalSegments int       `json:"total_segments"`
	SegmentsDone  int       `json:"segments_done"`
	OutputPath    string    `json:"output_path,omitempty"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	FinishedAt    time.Time `json:"finished_at,omitzero"`
}

// Percent returns synthesis progress in [0, 100].
func (j *Job) Percent() float64 {
	if j == nil || j.TotalSegments <= 0 {
		if j != nil && j.State == StateCompleted {
			return 100
		}
		return 0
	}
	return min(100, float64(j.SegmentsDone)*100/float64(j.TotalSegments))
}

// Elapsed returns the run time so far, or the total for finished jobs.
func (j *Job) Elapsed(now time.Time) time.Duration {
	if j == nil || j.StartedAt.IsZero() {
		return 0
	}
	if !j.FinishedAt.IsZero() {
		return j.FinishedAt.Sub(j.StartedAt)
	}
	return now.Sub(j.StartedAt)
}
