package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sqltriage/sqltriage/internal/prompt"
	"github.com/sqltriage/sqltriage/internal/sandbox"
)

// DefaultMaxIterations bounds provider round trips per orchestration. The
// budget is the primary cancellation mechanism: a model that requests data on
// every turn terminates here, not at the wallet.
const DefaultMaxIterations = 5

// Orchestrator runs the bounded multi-turn analysis conversation. Turns
// within one orchestration are strictly sequential; independent orchestrations
// may run in parallel since the struct holds no mutable state.
type Orchestrator struct {
	Provider      Provider
	Executor      sandbox.Executor
	MaxIterations int
}

// Outcome is the terminal state of one orchestration.
type Outcome struct {
	FinalText       string
	Iterations      int
	QueriesExecuted int
	Exhausted       bool
	Provider        string
	Model           string
	Tokens          int
	Duration        time.Duration
}

// Run drives the conversation until the provider responds without a query
// request, the iteration budget runs out, or the provider fails. A provider
// failure is terminal: no partial conversation is ever promoted to a result.
func (o *Orchestrator) Run(ctx context.Context, in prompt.Input) (*Outcome, error) {
	if o.Provider == nil {
		return nil, fmt.Errorf("no AI provider configured")
	}
	maxIter := o.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	start := time.Now()
	outcome := &Outcome{
		Provider: o.Provider.Name(),
		Model:    o.Provider.Model(),
	}

	turns := []Turn{{Role: RoleUser, Content: prompt.Initial(in)}}

	for i := 1; i <= maxIter; i++ {
		reply, err := o.Provider.Complete(ctx, turns)
		if err != nil {
			return nil, fmt.Errorf("AI provider failed at iteration %d: %w", i, err)
		}
		outcome.Iterations = i
		outcome.Tokens += reply.Tokens
		turns = append(turns, Turn{Role: RoleAssistant, Content: reply.Text})

		requests := ParseQueryRequests(reply.Text)
		if len(requests) == 0 {
			outcome.FinalText = reply.Text
			outcome.Duration = time.Since(start)
			return outcome, nil
		}

		results := o.execute(ctx, requests)
		outcome.QueriesExecuted += len(results)
		turns = append(turns, Turn{Role: RoleUser, Content: prompt.QueryResults(results)})

		// Last reply still contained requests when the budget ran out:
		// keep it as the best-effort final text.
		outcome.FinalText = reply.Text
	}

	outcome.Exhausted = true
	outcome.Duration = time.Since(start)
	return outcome, nil
}

// execute runs each request through the sandbox. A missing executor is
// reported to the model the same way a rejected statement is, so the
// conversation can still converge.
func (o *Orchestrator) execute(ctx context.Context, requests []sandbox.Request) []sandbox.Result {
	results := make([]sandbox.Result, 0, len(requests))
	for _, req := range requests {
		if o.Executor == nil {
			results = append(results, sandbox.Result{
				SQL: req.SQL,
				Err: "no database connection available for sandboxed queries",
			})
			continue
		}
		results = append(results, o.Executor.Run(ctx, req))
	}
	return results
}
