// Package policy gates run submissions with an OPA policy. The policy sees
// the problem statement and instance id and decides allow or block before a
// run record is ever created.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input is what the policy evaluates for each submission.
type Input struct {
	ProblemStatement string `json:"problem_statement"`
	InstanceID       string `json:"instance_id"`
	Batch            bool   `json:"batch"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.submit_policy.decision"),
		rego.Module("submit_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the submission policy and returns the decision.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy is expected to define a default; treat silence as allow.
		return DecisionAllow, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// DefaultPolicy is the default policy content: allow everything except
// oversized problem statements and a reserved instance-id prefix.
const DefaultPolicy = `
package submit_policy

default decision = "allow"

decision = "block" {
	count(input.problem_statement) > 65536
}

decision = "block" {
	startswith(input.instance_id, "internal-")
}
`
