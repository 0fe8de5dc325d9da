// Package domain defines the core domain models for the run orchestrator.
package domain

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusStopped   RunStatus = "stopped"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusStopped:
		return true
	}
	return false
}

// CanTransition reports whether a run may move from s to next.
//
// The state machine is strictly forward:
//
//	queued  -> running | stopped
//	running -> completed | failed | stopped
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case RunStatusQueued:
		return next == RunStatusRunning || next == RunStatusStopped
	case RunStatusRunning:
		return next == RunStatusCompleted || next == RunStatusFailed || next == RunStatusStopped
	}
	return false
}

// EventType represents the type of a trajectory event.
type EventType string

const (
	EventTypeRunQueued      EventType = "run_queued"
	EventTypeRunStarted     EventType = "run_started"
	EventTypeRunCompleted   EventType = "run_completed"
	EventTypeRunFailed      EventType = "run_failed"
	EventTypeRunStopped     EventType = "run_stopped"
	EventTypePolicyDecision EventType = "policy_decision"
)
