// Package service implements the run orchestrator: it turns inbound problem
// statements into isolated run executions, owns every status transition, and
// keeps one run's failure away from every other run.
package service

import (
	"sync"

	"github.com/llmsc-security/swe-agent-api/config"
	"github.com/llmsc-security/swe-agent-api/internal/executor"
	"github.com/llmsc-security/swe-agent-api/internal/metrics"
	"github.com/llmsc-security/swe-agent-api/internal/registry"
	"github.com/llmsc-security/swe-agent-api/internal/trajectory"
	"github.com/llmsc-security/swe-agent-api/internal/workspace"
	"github.com/llmsc-security/swe-agent-api/policy"
)

// Service is the run orchestrator.
type Service struct {
	registry     *registry.Registry
	events       *trajectory.SQLiteStore
	exec         executor.Executor
	workspaces   *workspace.Manager
	policyEngine *policy.Engine
	config       *config.Config
	metrics      *metrics.Metrics

	mu       sync.Mutex
	inflight map[string]*inflightRun
	closed   bool
}

// inflightRun tracks one dispatched execution. done is closed when the
// dispatch goroutine exits; cancel requests the executor to stop.
type inflightRun struct {
	cancel func()
	done   chan struct{}
}

// New creates the orchestrator.
func New(reg *registry.Registry, events *trajectory.SQLiteStore, exec executor.Executor, workspaces *workspace.Manager, policyEngine *policy.Engine, cfg *config.Config, m *metrics.Metrics) *Service {
	return &Service{
		registry:     reg,
		events:       events,
		exec:         exec,
		workspaces:   workspaces,
		policyEngine: policyEngine,
		config:       cfg,
		metrics:      m,
		inflight:     make(map[string]*inflightRun),
	}
}

// Close cancels every in-flight execution, waits for the dispatch
// goroutines to exit and clears the registry.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	pending := make([]*inflightRun, 0, len(s.inflight))
	for _, r := range s.inflight {
		r.cancel()
		pending = append(pending, r)
	}
	s.mu.Unlock()

	for _, r := range pending {
		<-r.done
	}
	s.registry.Clear()
}
