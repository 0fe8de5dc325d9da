package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Stub is a no-dependency executor for local development and smoke tests.
// It writes a placeholder patch into the workspace and reports success
// after a short delay, honoring cancellation.
type Stub struct {
	Delay time.Duration
}

// Execute implements Executor.
func (s *Stub) Execute(ctx context.Context, runID, problem, workspace string) (string, error) {
	select {
	case <-time.After(s.Delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	patch := filepath.Join(workspace, "model.patch")
	if err := os.WriteFile(patch, []byte("# stub patch for "+runID+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write stub patch: %w", err)
	}
	return fmt.Sprintf("stub execution completed, output directory: %s", workspace), nil
}
