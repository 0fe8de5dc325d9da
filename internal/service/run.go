package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/llmsc-security/swe-agent-api/internal/domain"
	"github.com/llmsc-security/swe-agent-api/policy"
)

// instanceIDPattern is what makes a run id safe to use as a path segment in
// the executor workspace. The leading alphanumeric rules out "." and "..".
var instanceIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// errRunStopped signals that the run was stopped before or during execution
// and its record is already settled.
var errRunStopped = errors.New("run stopped")

// Submit validates the request, creates the run and dispatches its
// execution. It returns immediately with the queued run; callers track
// progress through Poll.
func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Run, error) {
	run, _, err := s.submit(ctx, req)
	return run, err
}

// SubmitAndWait submits the run and blocks until it reaches a terminal
// state or ctx is done.
func (s *Service) SubmitAndWait(ctx context.Context, req domain.SubmitRequest) (*domain.Run, error) {
	run, entry, err := s.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	select {
	case <-entry.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Poll(run.ID)
}

// SubmitBatch submits every item independently and joins on all of them.
// One item's validation error or execution failure never prevents the
// remaining items from being submitted and executed; the result always has
// exactly one outcome per input item, in input order.
func (s *Service) SubmitBatch(ctx context.Context, items []domain.BatchItem) []domain.BatchOutcome {
	s.metrics.BatchItems.Add(float64(len(items)))

	outcomes := make([]domain.BatchOutcome, len(items))

	type pendingRun struct {
		idx   int
		id    string
		entry *inflightRun
	}
	var pending []pendingRun

	// Dispatch everything before joining on anything.
	for i, item := range items {
		id := item.InstanceID
		if id == "" {
			id = fmt.Sprintf("instance-%d", i)
		}

		run, entry, err := s.submit(ctx, domain.SubmitRequest{Problem: item.Problem, InstanceID: id})
		if err != nil {
			outcomes[i] = domain.BatchOutcome{InstanceID: id, Status: domain.OutcomeError, Error: err.Error()}
			continue
		}
		pending = append(pending, pendingRun{idx: i, id: run.ID, entry: entry})
	}

	for _, p := range pending {
		select {
		case <-p.entry.done:
		case <-ctx.Done():
		}
		outcomes[p.idx] = s.outcomeFor(p.id)
	}
	return outcomes
}

// Stop requests cancellation of a non-terminal run. The record is marked
// stopped immediately; if the executor cannot be interrupted mid-flight its
// eventual result is discarded.
func (s *Service) Stop(ctx context.Context, id string) (*domain.Run, error) {
	run, err := s.registry.Transition(id, domain.RunStatusStopped, "", "")
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if entry, ok := s.inflight[id]; ok {
		entry.cancel()
	}
	s.mu.Unlock()

	s.recordEvent(id, domain.EventTypeRunStopped, nil)
	s.observeFinished(run)
	return run, nil
}

// Poll returns the current state of the run. It never blocks.
func (s *Service) Poll(id string) (*domain.Run, error) {
	return s.registry.Get(id)
}

// List returns a snapshot of all runs in submission order.
func (s *Service) List() []*domain.Run {
	return s.registry.List()
}

// Trajectory returns the run together with its recorded events.
func (s *Service) Trajectory(ctx context.Context, id string) (*domain.Run, []domain.Event, error) {
	run, err := s.registry.Get(id)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.events.Events(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, events, nil
}

func (s *Service) submit(ctx context.Context, req domain.SubmitRequest) (*domain.Run, *inflightRun, error) {
	if req.Problem == "" {
		return nil, nil, fmt.Errorf("%w: problem_statement is required", domain.ErrValidation)
	}

	id := req.InstanceID
	if id == "" {
		id = "run_" + uuid.New().String()[:8]
	} else if !instanceIDPattern.MatchString(id) {
		return nil, nil, fmt.Errorf("%w: instance_id must be a safe path segment", domain.ErrValidation)
	}

	decision, err := s.policyEngine.Evaluate(ctx, policy.Input{
		ProblemStatement: req.Problem,
		InstanceID:       id,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate submission policy: %w", err)
	}
	if decision != policy.DecisionAllow {
		return nil, nil, fmt.Errorf("%w: submission blocked by policy", domain.ErrValidation)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: service is shutting down", domain.ErrValidation)
	}
	run, err := s.registry.Create(id, req.Problem)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}

	runCtx, cancel := context.WithTimeout(context.Background(), s.config.ExecutorTimeout)
	entry := &inflightRun{cancel: cancel, done: make(chan struct{})}
	s.inflight[id] = entry
	s.mu.Unlock()

	s.recordEvent(id, domain.EventTypeRunQueued, nil)
	s.recordEvent(id, domain.EventTypePolicyDecision, map[string]string{"decision": decision})
	s.metrics.RunsSubmitted.Inc()
	s.metrics.RunsInFlight.Inc()

	go s.execute(runCtx, entry, id, req.Problem)

	return run, entry, nil
}

// execute drives one run to a terminal state. Every executor error, panic
// included, is converted into a failed transition here and never escapes to
// a sibling run or a batch caller.
func (s *Service) execute(ctx context.Context, entry *inflightRun, id, problem string) {
	defer func() {
		entry.cancel()
		s.mu.Lock()
		if s.inflight[id] == entry {
			delete(s.inflight, id)
		}
		s.mu.Unlock()
		s.metrics.RunsInFlight.Dec()
		close(entry.done)
	}()

	result, err := s.runOne(ctx, id, problem)
	switch {
	case errors.Is(err, errRunStopped):
		// Stop already settled the record.
	case errors.Is(err, context.DeadlineExceeded):
		s.finish(id, domain.RunStatusFailed, "", fmt.Sprintf("execution timed out after %s", s.config.ExecutorTimeout))
	case err != nil:
		s.finish(id, domain.RunStatusFailed, "", err.Error())
	default:
		s.finish(id, domain.RunStatusCompleted, result, "")
	}
}

func (s *Service) runOne(ctx context.Context, id, problem string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()

	workspaceDir, cleanup, err := s.workspaces.Acquire(id)
	if err != nil {
		return "", fmt.Errorf("acquire workspace: %w", err)
	}
	defer cleanup()

	if _, err := s.registry.Transition(id, domain.RunStatusRunning, "", ""); err != nil {
		return "", errRunStopped
	}
	s.recordEvent(id, domain.EventTypeRunStarted, map[string]string{"workspace": workspaceDir})

	return s.exec.Execute(ctx, id, problem, workspaceDir)
}

// finish applies the terminal transition. A rejected transition means the
// run was stopped while the executor was still working; the late result is
// discarded, never re-applied.
func (s *Service) finish(id string, status domain.RunStatus, result, errMsg string) {
	run, err := s.registry.Transition(id, status, result, errMsg)
	if err != nil {
		log.Printf("run %s: discarding late %s outcome: %v", id, status, err)
		return
	}

	switch status {
	case domain.RunStatusCompleted:
		s.recordEvent(id, domain.EventTypeRunCompleted, map[string]string{"result": result})
	case domain.RunStatusFailed:
		s.recordEvent(id, domain.EventTypeRunFailed, map[string]string{"error": errMsg})
	}
	s.observeFinished(run)
}

func (s *Service) outcomeFor(id string) domain.BatchOutcome {
	run, err := s.registry.Get(id)
	if err != nil {
		return domain.BatchOutcome{InstanceID: id, Status: domain.OutcomeError, Error: err.Error()}
	}
	switch run.Status {
	case domain.RunStatusCompleted:
		return domain.BatchOutcome{InstanceID: id, Status: domain.OutcomeSuccess, Result: run.Result}
	case domain.RunStatusFailed:
		return domain.BatchOutcome{InstanceID: id, Status: domain.OutcomeError, Error: run.Error}
	case domain.RunStatusStopped:
		return domain.BatchOutcome{InstanceID: id, Status: domain.OutcomeError, Error: "run was stopped"}
	default:
		return domain.BatchOutcome{InstanceID: id, Status: domain.OutcomeError, Error: "wait cancelled before run finished"}
	}
}

func (s *Service) observeFinished(run *domain.Run) {
	s.metrics.RunsFinished.WithLabelValues(string(run.Status)).Inc()
	if run.EndedAt != nil {
		s.metrics.RunDuration.Observe(run.EndedAt.Sub(run.CreatedAt).Seconds())
	}
}

func (s *Service) recordEvent(runID string, eventType domain.EventType, payload interface{}) {
	// Event log failures must not block or fail the run.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.Record(ctx, runID, eventType, payload); err != nil {
		log.Printf("failed to record %s event for run %s: %v", eventType, runID, err)
	}
}
