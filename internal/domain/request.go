package domain

// SubmitRequest is the request to run the agent on a single problem.
type SubmitRequest struct {
	Problem    string `json:"problem_statement"`
	InstanceID string `json:"instance_id,omitempty"`
	ConfigPath string `json:"config,omitempty"`
	Async      bool   `json:"async,omitempty"`
}

// BatchItem is one entry of a batch submission.
type BatchItem struct {
	Problem    string `json:"problem_statement"`
	InstanceID string `json:"instance_id,omitempty"`
}

// BatchRequest is the request to run the agent on multiple problems.
type BatchRequest struct {
	Problems []BatchItem `json:"problems"`
}

// BatchOutcome reports the terminal outcome of one batch item. Exactly one
// of Result and Error is set.
type BatchOutcome struct {
	InstanceID string `json:"instance_id"`
	Status     string `json:"status"` // "success" or "error"
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Outcome statuses reported per batch item.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
