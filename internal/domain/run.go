package domain

import (
	"encoding/json"
	"time"
)

// Run represents a single tracked execution of the agent against one
// problem statement.
type Run struct {
	ID        string     `json:"instance_id"`
	Problem   string     `json:"problem_statement"`
	Status    RunStatus  `json:"status"`
	Result    string     `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Clone returns a copy of the run that callers may hold without observing
// later mutations.
func (r *Run) Clone() *Run {
	cp := *r
	if r.EndedAt != nil {
		t := *r.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}

// Event represents a trajectory event recorded for a run.
type Event struct {
	EventID string          `json:"event_id"`
	RunID   string          `json:"run_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
