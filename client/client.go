// Package client provides a polling client for the swe-agent-api server:
// submit a run, poll its trajectory until terminal or timeout, stop it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrWaitTimeout is returned when a run did not reach a terminal state
// within the overall wait timeout. It says nothing about the run itself:
// the server keeps executing and no cancellation has been requested.
var ErrWaitTimeout = errors.New("timed out waiting for run completion")

// DefaultPollInterval is the delay between trajectory polls.
const DefaultPollInterval = 2 * time.Second

// Client talks to a swe-agent-api server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Health is the /health response.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Run is the /run submission response.
type Run struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Trajectory is the /trajectory/{run_id} response.
type Trajectory struct {
	InstanceID string `json:"instance_id"`
	Status     string `json:"status"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	Steps      int    `json:"steps"`
}

// TrajectorySummary is one entry of the /trajectories response.
type TrajectorySummary struct {
	InstanceID string `json:"instance_id"`
	Status     string `json:"status"`
}

// CheckHealth checks whether the server is up.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.get(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit starts a run asynchronously and returns its instance id. The
// caller tracks progress with WaitForCompletion or Trajectory.
func (c *Client) Submit(ctx context.Context, problem, instanceID string) (*Run, error) {
	body := map[string]interface{}{
		"problem_statement": problem,
		"async":             true,
	}
	if instanceID != "" {
		body["instance_id"] = instanceID
	}

	var out Run
	if err := c.post(ctx, "/run", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trajectory returns the current state of a run.
func (c *Client) Trajectory(ctx context.Context, runID string) (*Trajectory, error) {
	var out Trajectory
	if err := c.get(ctx, "/trajectory/"+runID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trajectories lists all runs known to the server.
func (c *Client) Trajectories(ctx context.Context) ([]TrajectorySummary, error) {
	var out []TrajectorySummary
	if err := c.get(ctx, "/trajectories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stop requests cancellation of a run.
func (c *Client) Stop(ctx context.Context, runID string) (*Run, error) {
	var out Run
	if err := c.post(ctx, "/run/"+runID+"/stop", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForCompletion polls the run at interval until it reaches a terminal
// state or timeout elapses. Transient poll failures are retried; they never
// count as a run failure. On timeout the error is ErrWaitTimeout and the
// run's server-side state is untouched.
func (c *Client) WaitForCompletion(ctx context.Context, runID string, interval, timeout time.Duration) (*Trajectory, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		traj, err := c.Trajectory(waitCtx, runID)
		if err == nil && isTerminal(traj.Status) {
			return traj, nil
		}
		// err != nil is a transient poll failure; keep polling until the
		// overall timeout.

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrWaitTimeout
		}
	}
}

func isTerminal(status string) bool {
	switch status {
	case "completed", "failed", "stopped":
		return true
	}
	return false
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", req.Method, req.URL.Path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
