// Package main provides a demo console client for the swe-agent-api server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/llmsc-security/swe-agent-api/client"
)

const testIssue = `Fix the bug in the main function where the variable is not initialized.

The issue is in line 42 of main.py where 'result' is used without being initialized first.`

func printSection(title string) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf(" %s\n", title)
	fmt.Println(strings.Repeat("=", 60))
}

func testHealthCheck(ctx context.Context, c *client.Client) bool {
	printSection("Test 1: Health Check")

	health, err := c.CheckHealth(ctx)
	if err != nil {
		fmt.Printf("Health check: FAILED - %v\n", err)
		return false
	}
	fmt.Printf("API Status: %s\n", health.Status)
	fmt.Printf("Service: %s\n", health.Service)
	fmt.Println("Health check: PASSED")
	return true
}

func runFullDemo(ctx context.Context, c *client.Client, waitTimeout time.Duration) error {
	printSection("Full Demo Sequence")

	// Step 1: Start a run
	fmt.Printf("Submitting issue: %.80s...\n", testIssue)
	run, err := c.Submit(ctx, testIssue, "")
	if err != nil {
		return fmt.Errorf("could not start run: %w", err)
	}
	fmt.Printf("Run started with ID: %s\n", run.InstanceID)
	fmt.Printf("Status: %s\n", run.Status)

	// Step 2: Poll until terminal or timeout
	fmt.Printf("Waiting for run %s to complete (timeout: %s)...\n", run.InstanceID, waitTimeout)
	traj, err := c.WaitForCompletion(ctx, run.InstanceID, client.DefaultPollInterval, waitTimeout)
	if err == client.ErrWaitTimeout {
		// The run may still finish server-side; this is not a run failure.
		fmt.Println("Timeout waiting for run completion")
		return nil
	}
	if err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}

	switch traj.Status {
	case "completed":
		fmt.Println("Run completed successfully!")
		fmt.Printf("Result: %s\n", traj.Result)
	case "failed":
		fmt.Printf("Run failed: %s\n", traj.Error)
	case "stopped":
		fmt.Println("Run was stopped")
	}
	fmt.Printf("Steps recorded: %d\n", traj.Steps)

	// Step 3: List trajectories
	printSection("Step 3: List Trajectories")
	trajectories, err := c.Trajectories(ctx)
	if err != nil {
		return fmt.Errorf("could not list trajectories: %w", err)
	}
	fmt.Printf("Found %d trajectory(s)\n", len(trajectories))
	for _, t := range trajectories {
		fmt.Printf("  - %s: %s\n", t.InstanceID, t.Status)
	}
	return nil
}

func main() {
	host := flag.String("host", "localhost", "API server host")
	port := flag.Int("port", 8000, "API server port")
	test := flag.Bool("test", false, "Run basic health check test")
	demo := flag.Bool("demo", false, "Run full demo sequence")
	waitTimeout := flag.Duration("wait-timeout", 5*time.Minute, "Timeout for waiting for runs")
	flag.Parse()

	log.SetFlags(log.Ltime)

	c := client.New(fmt.Sprintf("http://%s:%d", *host, *port))
	ctx := context.Background()

	printSection("swe-agent-api Client")
	fmt.Printf("Base URL: http://%s:%d\n", *host, *port)

	switch {
	case *test:
		if !testHealthCheck(ctx, c) {
			os.Exit(1)
		}
	case *demo:
		if err := runFullDemo(ctx, c, *waitTimeout); err != nil {
			log.Fatalf("Demo failed: %v", err)
		}
	default:
		flag.Usage()
	}
}
