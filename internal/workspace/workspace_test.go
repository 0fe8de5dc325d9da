package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndCleanup(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	dir, cleanup, err := m.Acquire("r1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("workspace dir missing: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "patch.diff"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write artifact failed: %v", err)
	}

	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("workspace dir not removed: %v", err)
	}
	// Double cleanup must be harmless.
	cleanup()
}

func TestAcquireIsolatesRuns(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	d1, c1, err := m.Acquire("r1")
	if err != nil {
		t.Fatalf("Acquire r1 failed: %v", err)
	}
	defer c1()
	d2, c2, err := m.Acquire("r1")
	if err != nil {
		t.Fatalf("Acquire r1 again failed: %v", err)
	}
	defer c2()

	if d1 == d2 {
		t.Fatalf("expected distinct workspaces, got %s twice", d1)
	}
}
