package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/llmsc-security/swe-agent-api/config"
	"github.com/llmsc-security/swe-agent-api/internal/executor"
	"github.com/llmsc-security/swe-agent-api/internal/metrics"
	"github.com/llmsc-security/swe-agent-api/internal/registry"
	"github.com/llmsc-security/swe-agent-api/internal/service"
	"github.com/llmsc-security/swe-agent-api/internal/trajectory"
	transport "github.com/llmsc-security/swe-agent-api/internal/transport/http"
	"github.com/llmsc-security/swe-agent-api/internal/workspace"
	"github.com/llmsc-security/swe-agent-api/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting swe-agent-api...")
	log.Printf("HTTP: %s:%d", cfg.Host, cfg.HTTPPort)
	log.Printf("Trajectory database: %s", cfg.DatabaseURL)
	log.Printf("Executor timeout: %s", cfg.ExecutorTimeout)

	// Initialize trajectory event store
	events, err := trajectory.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize trajectory store: %v", err)
	}
	defer events.Close()

	// Initialize workspace manager
	workspaces, err := workspace.NewManager(cfg.WorkspaceDir)
	if err != nil {
		log.Fatalf("Failed to initialize workspace manager: %v", err)
	}

	// Initialize executor
	exec, err := buildExecutor(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize executor: %v", err)
	}

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, loadPolicy(cfg))
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize metrics
	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	// Initialize orchestrator
	svc := service.New(registry.New(), events, exec, workspaces, policyEngine, cfg, m)

	// Initialize HTTP server
	server := transport.NewServer(svc, promRegistry)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down swe-agent-api...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}
	svc.Close()

	log.Println("swe-agent-api stopped")
}

// buildExecutor selects the executor implementation: a configured agent CLI
// when EXECUTOR_CMD is set, otherwise the built-in stub.
func buildExecutor(cfg *config.Config) (executor.Executor, error) {
	if cfg.ExecutorCmd == "" {
		log.Printf("EXECUTOR_CMD not set, using stub executor")
		return &executor.Stub{Delay: 100 * time.Millisecond}, nil
	}
	return executor.NewCommand(cfg.ExecutorCmd)
}

// loadPolicy returns the policy content, preferring a configured rego file
// over the built-in default.
func loadPolicy(cfg *config.Config) string {
	if cfg.PolicyFile == "" {
		return policy.DefaultPolicy
	}
	content, err := os.ReadFile(cfg.PolicyFile)
	if err != nil {
		log.Fatalf("Failed to read policy file %s: %v", cfg.PolicyFile, err)
	}
	return string(content)
}
