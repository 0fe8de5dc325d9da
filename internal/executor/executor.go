// Package executor defines the boundary to the agent that does the actual
// work for a run. The orchestrator treats it as a single blocking call; how
// the agent reasons or edits code is not this service's concern.
package executor

import "context"

// Executor performs one agent execution to completion or failure inside the
// given workspace. workspace is exclusive to this invocation. The returned
// string is an opaque success payload, typically a reference to produced
// artifacts. Cancelling ctx requests the execution to stop.
type Executor interface {
	Execute(ctx context.Context, runID, problem, workspace string) (string, error)
}

// Func adapts a function to the Executor interface.
type Func func(ctx context.Context, runID, problem, workspace string) (string, error)

// Execute implements Executor.
func (f Func) Execute(ctx context.Context, runID, problem, workspace string) (string, error) {
	return f(ctx, runID, problem, workspace)
}
