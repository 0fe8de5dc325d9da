// Package workspace manages the isolated working directories handed to the
// executor, one per run.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Manager hands out per-run directories under a base dir. Directories are
// never shared between runs and are removed when a run finishes.
type Manager struct {
	baseDir string
}

// NewManager creates a manager rooted at baseDir, creating it if needed.
// An empty baseDir falls back to the system temp dir.
func NewManager(baseDir string) (*Manager, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "swe-agent-workspaces")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace base dir: %w", err)
	}
	return &Manager{baseDir: baseDir}, nil
}

// Acquire creates a fresh workspace for the given run and returns its path
// together with a cleanup func. cleanup is safe to call on every exit path
// and never fails the run.
func (m *Manager) Acquire(runID string) (dir string, cleanup func(), err error) {
	// The run id is validated as a path segment before it gets here, but the
	// unique suffix also guards against collisions with a reused id.
	dir, err = os.MkdirTemp(m.baseDir, runID+"-")
	if err != nil {
		return "", nil, fmt.Errorf("create workspace for %s: %w", runID, err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
