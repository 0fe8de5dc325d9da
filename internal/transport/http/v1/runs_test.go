package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/llmsc-security/swe-agent-api/config"
	"github.com/llmsc-security/swe-agent-api/internal/executor"
	"github.com/llmsc-security/swe-agent-api/internal/metrics"
	"github.com/llmsc-security/swe-agent-api/internal/registry"
	"github.com/llmsc-security/swe-agent-api/internal/service"
	"github.com/llmsc-security/swe-agent-api/internal/trajectory"
	"github.com/llmsc-security/swe-agent-api/internal/workspace"
	"github.com/llmsc-security/swe-agent-api/policy"
)

func newTestHandler(t *testing.T, exec executor.Executor) *Handler {
	t.Helper()

	events, err := trajectory.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create event store: %v", err)
	}
	t.Cleanup(func() { _ = events.Close() })

	workspaces, err := workspace.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create workspace manager: %v", err)
	}

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}

	cfg := &config.Config{ExecutorTimeout: 10 * time.Second}
	svc := service.New(registry.New(), events, exec, workspaces, engine, cfg, metrics.New(prometheus.NewRegistry()))
	t.Cleanup(svc.Close)
	return NewHandler(svc)
}

func solvingExecutor() executor.Executor {
	return executor.Func(func(ctx context.Context, runID, problem, workspace string) (string, error) {
		if strings.Contains(problem, "explode") {
			panic("executor blew up")
		}
		return "solved: " + problem, nil
	})
}

func postJSON(e *echo.Echo, h echo.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = h(c)
	return rec
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, solvingExecutor())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := h.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, ServiceName, resp["service"])
}

func TestRunSuccess(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, solvingExecutor())

	rec := postJSON(e, h.Run, "/run", `{"problem_statement":"fix bug X","instance_id":"r1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "r1", resp["instance_id"])
	assert.NotEmpty(t, resp["result"])
}

func TestRunMissingProblem(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, solvingExecutor())

	rec := postJSON(e, h.Run, "/run", `{"instance_id":"r1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, "problem_statement is required", resp["error"])
}

func TestRunExecutorFailureIsNot5xx(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, solvingExecutor())

	rec := postJSON(e, h.Run, "/run", `{"problem_statement":"please explode","instance_id":"r1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "r1", resp["instance_id"])
	assert.Contains(t, resp["error"], "executor panic")
}

func TestRunAsync(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, solvingExecutor())

	rec := postJSON(e, h.Run, "/run", `{"problem_statement":"fix bug X","instance_id":"r1","async":true}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, "queued", resp["status"])
	assert.Equal(t, "r1", resp["instance_id"])
}

func TestRunDuplicateConflict(t *testing.T) {
	e := echo.New()
	release := make(chan struct{})
	defer close(release)
	blocking := executor.Func(func(ctx context.Context, runID, problem, workspace string) (string, error) {
		select {
		case <-release:
			return "ok", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	h := newTestHandler(t, blocking)

	rec := postJSON(e, h.Run, "/run", `{"problem_statement":"p","instance_id":"r1","async":true}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = postJSON(e, h.Run, "/run", `{"problem_statement":"p","instance_id":"r1","async":true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBatchRun(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, solvingExecutor())

	body := `{"problems":[
		{"problem_statement":"task one","instance_id":"b1"},
		{"problem_statement":"please explode","instance_id":"b2"},
		{"problem_statement":"task three","instance_id":"b3"}
	]}`
	rec := postJSON(e, h.BatchRun, "/batch-run", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status  string `json:"status"`
		Total   int    `json:"total"`
		Results []struct {
			InstanceID string `json:"instance_id"`
			Status     string `json:"status"`
			Result     string `json:"result"`
			Error      string `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, "batch-complete", resp.Status)
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, "success", resp.Results[0].Status)
	assert.Equal(t, "error", resp.Results[1].Status)
	assert.Equal(t, "success", resp.Results[2].Status)
	assert.NotEmpty(t, resp.Results[1].Error)
}

func TestBatchRunEmpty(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, solvingExecutor())

	rec := postJSON(e, h.BatchRun, "/batch-run", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, "problems must be a non-empty list", resp["error"])
}

func TestTrajectoryLifecycle(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, solvingExecutor())

	rec := postJSON(e, h.Run, "/run", `{"problem_statement":"fix bug X","instance_id":"r1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/trajectory/r1", nil)
	trec := httptest.NewRecorder()
	c := e.NewContext(req, trec)
	c.SetParamNames("run_id")
	c.SetParamValues("r1")
	if err := h.GetTrajectory(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assert.Equal(t, http.StatusOK, trec.Code)

	var traj map[string]interface{}
	if err := json.Unmarshal(trec.Body.Bytes(), &traj); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, "completed", traj["status"])
	assert.NotEmpty(t, traj["result"])
	assert.Greater(t, traj["steps"], float64(0))

	// Full event log
	req = httptest.NewRequest(http.MethodGet, "/trajectory/r1/file", nil)
	frec := httptest.NewRecorder()
	c = e.NewContext(req, frec)
	c.SetParamNames("run_id")
	c.SetParamValues("r1")
	if err := h.GetTrajectoryFile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assert.Equal(t, http.StatusOK, frec.Code)

	var file struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(frec.Body.Bytes(), &file); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.NotEmpty(t, file.Events)
}

func TestTrajectoryNotFound(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, solvingExecutor())

	req := httptest.NewRequest(http.MethodGet, "/trajectory/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id")
	c.SetParamValues("missing")
	if err := h.GetTrajectory(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTrajectories(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, solvingExecutor())

	postJSON(e, h.Run, "/run", `{"problem_statement":"a","instance_id":"r1"}`)
	postJSON(e, h.Run, "/run", `{"problem_statement":"b","instance_id":"r2"}`)

	req := httptest.NewRequest(http.MethodGet, "/trajectories", nil)
	rec := httptest.NewRecorder()
	if err := h.ListTrajectories(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assert.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Len(t, list, 2)
	assert.Equal(t, "r1", list[0]["instance_id"])
	assert.Equal(t, "r2", list[1]["instance_id"])
}

func TestStopRun(t *testing.T) {
	e := echo.New()
	release := make(chan struct{})
	defer close(release)
	blocking := executor.Func(func(ctx context.Context, runID, problem, workspace string) (string, error) {
		select {
		case <-release:
			return "ok", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	h := newTestHandler(t, blocking)

	rec := postJSON(e, h.Run, "/run", `{"problem_statement":"p","instance_id":"r1","async":true}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/run/r1/stop", nil)
	srec := httptest.NewRecorder()
	c := e.NewContext(req, srec)
	c.SetParamNames("run_id")
	c.SetParamValues("r1")
	if err := h.StopRun(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assert.Equal(t, http.StatusOK, srec.Code)

	var resp map[string]interface{}
	if err := json.Unmarshal(srec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, "stopped", resp["status"])

	// A second stop on a terminal run is a conflict.
	req = httptest.NewRequest(http.MethodPost, "/run/r1/stop", nil)
	srec = httptest.NewRecorder()
	c = e.NewContext(req, srec)
	c.SetParamNames("run_id")
	c.SetParamValues("r1")
	if err := h.StopRun(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assert.Equal(t, http.StatusConflict, srec.Code)
}
