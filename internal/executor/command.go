package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// problemFileName is where the problem statement is materialized inside the
// workspace for the agent CLI to read.
const problemFileName = "problem_statement.md"

// maxResultBytes bounds how much agent output is carried into the run record.
const maxResultBytes = 4096

// Command runs an agent CLI as a subprocess inside the run workspace. The
// run id, workspace path and problem file are passed through the
// environment so any CLI can be adapted without flag plumbing.
type Command struct {
	Bin  string
	Args []string
}

// NewCommand builds a Command from a shell-less command line, e.g.
// "sweagent run --batch". Returns an error when the line is empty.
func NewCommand(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty executor command")
	}
	return &Command{Bin: fields[0], Args: fields[1:]}, nil
}

// Execute implements Executor.
func (c *Command) Execute(ctx context.Context, runID, problem, workspace string) (string, error) {
	problemPath := filepath.Join(workspace, problemFileName)
	if err := os.WriteFile(problemPath, []byte(problem), 0o644); err != nil {
		return "", fmt.Errorf("write problem statement: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.Bin, c.Args...)
	cmd.Dir = workspace
	cmd.Env = append(os.Environ(),
		"AGENT_RUN_ID="+runID,
		"AGENT_WORKSPACE="+workspace,
		"AGENT_PROBLEM_FILE="+problemPath,
	)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("agent command failed: %v: %s", err, tail(out.Bytes()))
	}

	result := strings.TrimSpace(string(tail(out.Bytes())))
	if result == "" {
		result = fmt.Sprintf("completed successfully, output directory: %s", workspace)
	}
	return result, nil
}

func tail(b []byte) []byte {
	if len(b) > maxResultBytes {
		return b[len(b)-maxResultBytes:]
	}
	return b
}
