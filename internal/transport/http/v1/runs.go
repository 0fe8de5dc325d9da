package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/llmsc-security/swe-agent-api/internal/domain"
)

// Run runs the agent on a single problem statement.
// POST /run
//
// By default the call blocks until the run is terminal and reports the
// outcome; with "async": true it returns 202 immediately and the caller
// polls /trajectory/{run_id}.
func (h *Handler) Run(c echo.Context) error {
	var req domain.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Problem == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "problem_statement is required"})
	}

	ctx := c.Request().Context()

	if req.Async {
		run, err := h.service.Submit(ctx, req)
		if err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusAccepted, map[string]interface{}{
			"status":      string(run.Status),
			"instance_id": run.ID,
		})
	}

	run, err := h.service.SubmitAndWait(ctx, req)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, runOutcome(run))
}

// BatchRun runs the agent on multiple problem statements. Items are
// dispatched concurrently and each one succeeds or fails on its own; the
// response carries one entry per input item.
// POST /batch-run
func (h *Handler) BatchRun(c echo.Context) error {
	var req domain.BatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Problems) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "problems must be a non-empty list"})
	}

	results := h.service.SubmitBatch(c.Request().Context(), req.Problems)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "batch-complete",
		"total":   len(results),
		"results": results,
	})
}

// StopRun stops an ongoing run.
// POST /run/:run_id/stop
func (h *Handler) StopRun(c echo.Context) error {
	runID := c.Param("run_id")

	run, err := h.service.Stop(c.Request().Context(), runID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"instance_id": run.ID,
		"status":      string(run.Status),
	})
}

// GetTrajectory returns the current state of a run.
// GET /trajectory/:run_id
func (h *Handler) GetTrajectory(c echo.Context) error {
	runID := c.Param("run_id")
	ctx := c.Request().Context()

	run, events, err := h.service.Trajectory(ctx, runID)
	if err != nil {
		return jsonError(c, err)
	}

	resp := map[string]interface{}{
		"instance_id": run.ID,
		"status":      string(run.Status),
		"created_at":  run.CreatedAt,
		"steps":       len(events),
	}
	if run.Result != "" {
		resp["result"] = run.Result
	}
	if run.Error != "" {
		resp["error"] = run.Error
	}
	if run.EndedAt != nil {
		resp["ended_at"] = run.EndedAt
	}
	return c.JSON(http.StatusOK, resp)
}

// GetTrajectoryFile returns the full event log of a run.
// GET /trajectory/:run_id/file
func (h *Handler) GetTrajectoryFile(c echo.Context) error {
	runID := c.Param("run_id")

	run, events, err := h.service.Trajectory(c.Request().Context(), runID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"instance_id": run.ID,
		"status":      string(run.Status),
		"events":      events,
	})
}

// ListTrajectories lists all runs.
// GET /trajectories
func (h *Handler) ListTrajectories(c echo.Context) error {
	runs := h.service.List()

	list := make([]map[string]interface{}, len(runs))
	for i, run := range runs {
		list[i] = map[string]interface{}{
			"instance_id": run.ID,
			"status":      string(run.Status),
			"created_at":  run.CreatedAt,
		}
	}
	return c.JSON(http.StatusOK, list)
}

// runOutcome serializes a terminal run the way the synchronous /run
// endpoint reports it. Executor failures surface here as a structured
// error payload, never as a transport-level 5xx.
func runOutcome(run *domain.Run) map[string]interface{} {
	resp := map[string]interface{}{
		"instance_id": run.ID,
	}
	switch run.Status {
	case domain.RunStatusCompleted:
		resp["status"] = "success"
		resp["result"] = run.Result
	case domain.RunStatusFailed:
		resp["status"] = "error"
		resp["error"] = run.Error
	default:
		resp["status"] = string(run.Status)
	}
	return resp
}
