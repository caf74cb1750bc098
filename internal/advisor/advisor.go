// Package advisor is the entry point of the analysis engine: it fingerprints
// a slow-query record, interprets its plan, runs the rule engine, and
// optionally refines the verdict through the AI orchestration loop.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sqltriage/sqltriage/internal/ai"
	"github.com/sqltriage/sqltriage/internal/fingerprint"
	"github.com/sqltriage/sqltriage/internal/metadata"
	"github.com/sqltriage/sqltriage/internal/plan"
	"github.com/sqltriage/sqltriage/internal/prompt"
	"github.com/sqltriage/sqltriage/internal/record"
	"github.com/sqltriage/sqltriage/internal/rules"
	"github.com/sqltriage/sqltriage/internal/sandbox"
)

// ErrEmptySQL rejects records with no statement text.
var ErrEmptySQL = errors.New("record has empty SQL text")

// Method records which pipeline produced the result.
type Method string

const (
	MethodRuleBased  Method = "rule_based"
	MethodAIAssisted Method = "ai_assisted"
	MethodHybrid     Method = "hybrid"
)

// Options control one analysis invocation. The zero value runs the
// deterministic rule pipeline only.
type Options struct {
	EnableAI      bool
	MaxIterations int
	Timeout       time.Duration

	Provider ai.Provider
	Executor sandbox.Executor
	Metadata metadata.Provider
}

// AIMeta describes the orchestration that refined a result.
type AIMeta struct {
	Iterations      int    `json:"iterations"`
	QueriesExecuted int    `json:"queries_executed"`
	Provider        string `json:"provider"`
	Model           string `json:"model"`
	Tokens          int    `json:"tokens,omitempty"`
	DurationMS      int64  `json:"duration_ms"`
	Exhausted       bool   `json:"exhausted,omitempty"`
}

// AnalysisResult is the complete diagnosis for one slow-query record.
type AnalysisResult struct {
	Summary          string             `json:"summary"`
	RootCause        string             `json:"root_cause"`
	Issues           []rules.Issue      `json:"issues"`
	Suggestions      []rules.Suggestion `json:"suggestions"`
	Priority         rules.Severity     `json:"priority"`
	EstimatedSpeedup string             `json:"estimated_speedup"`
	Method           Method             `json:"method"`
	Confidence       float64            `json:"confidence"`
	Plan             plan.Finding       `json:"plan"`
	PlanError        string             `json:"plan_error,omitempty"`
	AIError          string             `json:"ai_error,omitempty"`
	AI               *AIMeta            `json:"ai,omitempty"`
}

// Analyze diagnoses one record. The rule-based result is always produced;
// when AI is enabled and fails, that result is returned with the failure
// recorded in AIError rather than losing the deterministic diagnosis.
func Analyze(ctx context.Context, rec *record.SlowQueryRecord, opts Options) (*AnalysisResult, error) {
	if rec == nil || strings.TrimSpace(rec.SQL) == "" {
		if rec != nil {
			rec.Status = record.StatusError
		}
		return nil, ErrEmptySQL
	}

	if rec.Fingerprint == "" {
		rec.Fingerprint, rec.Hash = fingerprint.Fingerprint(rec.SQL)
	}

	finding, planErr := plan.Interpret(rec.PlanJSON, rec.Kind)
	ruleResult := rules.Analyze(rec.SQL, rec.Metrics, finding)

	result := &AnalysisResult{
		Summary:          ruleResult.Assessment,
		RootCause:        rootCause(ruleResult),
		Issues:           ruleResult.Issues,
		Suggestions:      ruleResult.Suggestions,
		Priority:         ruleResult.Priority,
		EstimatedSpeedup: speedupLabel(ruleResult.Priority),
		Method:           MethodRuleBased,
		Confidence:       confidence(MethodRuleBased, len(ruleResult.Issues)),
		Plan:             finding,
	}
	if planErr != nil {
		result.PlanError = planErr.Error()
	}

	if opts.EnableAI {
		if err := refineWithAI(ctx, rec, opts, result); err != nil {
			result.AIError = err.Error()
		}
	}

	rec.Status = record.StatusAnalyzed
	return result, nil
}

func refineWithAI(ctx context.Context, rec *record.SlowQueryRecord, opts Options, result *AnalysisResult) error {
	if opts.Provider == nil {
		return fmt.Errorf("AI enabled but no provider configured")
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	schema := ""
	if opts.Metadata != nil {
		// Schema lookup failure only degrades the prompt.
		if excerpt, err := opts.Metadata.Describe(ctx, fingerprint.ExtractTables(rec.SQL)); err == nil {
			schema = excerpt
		}
	}

	o := &ai.Orchestrator{
		Provider:      opts.Provider,
		Executor:      opts.Executor,
		MaxIterations: opts.MaxIterations,
	}
	outcome, err := o.Run(ctx, prompt.Input{
		SQL:     rec.SQL,
		Kind:    rec.Kind,
		Metrics: rec.Metrics,
		Plan:    string(rec.PlanJSON),
		Schema:  schema,
	})
	if err != nil {
		return err
	}

	result.Summary = outcome.FinalText
	result.Method = MethodHybrid
	result.Confidence = confidence(MethodHybrid, len(result.Issues))
	result.AI = &AIMeta{
		Iterations:      outcome.Iterations,
		QueriesExecuted: outcome.QueriesExecuted,
		Provider:        outcome.Provider,
		Model:           outcome.Model,
		Tokens:          outcome.Tokens,
		DurationMS:      outcome.Duration.Milliseconds(),
		Exhausted:       outcome.Exhausted,
	}
	return nil
}

func rootCause(res rules.Result) string {
	if len(res.Issues) == 0 {
		return "No performance problem detected"
	}
	return res.Issues[0].Message
}

// speedupLabel is a coarse, deterministic estimate derived from priority.
func speedupLabel(p rules.Severity) string {
	switch p {
	case rules.Critical:
		return "10x or more"
	case rules.High:
		return "3-10x"
	case rules.Medium:
		return "1.5-3x"
	case rules.Low:
		return "minor"
	default:
		return "none expected"
	}
}

// confidence is deliberately simple and deterministic: heuristics get more
// confident as independent rules corroborate each other, and a completed AI
// pass raises the ceiling.
func confidence(m Method, issueCount int) float64 {
	base := 0.5
	if m == MethodHybrid || m == MethodAIAssisted {
		base = 0.75
	}
	c := base + 0.03*float64(issueCount)
	if c > 0.95 {
		c = 0.95
	}
	return c
}
