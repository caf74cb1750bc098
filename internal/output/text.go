package output

import (
	"fmt"
	"io"

	"github.com/sqltriage/sqltriage/internal/advisor"
	"github.com/sqltriage/sqltriage/internal/rules"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

type textWriter struct {
	w   io.Writer
	err error
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

func RenderAnalysisText(w io.Writer, result *advisor.AnalysisResult) error {
	tw := &textWriter{w: w}

	label, color := severityFormat(result.Priority)
	tw.printf("%s%sAnalysis%s\n\n", colorBold, colorCyan, colorReset)
	tw.printf("  Priority:   %s%s%s\n", color, label, colorReset)
	tw.printf("  Method:     %s\n", result.Method)
	tw.printf("  Confidence: %.2f\n", result.Confidence)
	tw.printf("  Speedup:    %s\n", result.EstimatedSpeedup)
	if result.Plan.AccessType != "" {
		tw.printf("  Access:     %s\n", result.Plan.AccessType)
	}
	if result.PlanError != "" {
		tw.printf("  %sPlan skipped: %s%s\n", colorDim, result.PlanError, colorReset)
	}
	tw.printf("\n")

	if len(result.Issues) == 0 {
		tw.printf("%s%sNo issues found.%s\n", colorBold, colorGreen, colorReset)
	} else {
		tw.printf("%s%sIssues (%d)%s\n\n", colorBold, colorCyan, len(result.Issues), colorReset)
		for i, issue := range result.Issues {
			label, color := severityFormat(issue.Severity)
			tw.printf("  %s%-8s%s %s\n", color, label, colorReset, issue.Message)
			tw.printf("  %s→ %s%s\n", colorDim, issue.Recommendation, colorReset)
			if i < len(result.Issues)-1 {
				tw.printf("\n")
			}
		}
	}

	if len(result.Suggestions) > 0 {
		tw.printf("\n%s%sSuggested Indexes%s\n\n", colorBold, colorCyan, colorReset)
		for _, s := range result.Suggestions {
			tw.printf("  %s\n", s.DDL)
			tw.printf("  %s%s%s\n", colorDim, s.Reason, colorReset)
		}
	}

	if result.AI != nil {
		tw.printf("\n%s%sAI Analysis%s %s(%s/%s, %d iterations, %d queries, %dms)%s\n\n",
			colorBold, colorCyan, colorReset, colorDim,
			result.AI.Provider, result.AI.Model,
			result.AI.Iterations, result.AI.QueriesExecuted,
			result.AI.DurationMS, colorReset)
		if result.AI.Exhausted {
			tw.printf("  %sIteration budget exhausted; verdict is best-effort.%s\n\n", colorYellow, colorReset)
		}
		tw.printf("%s\n", result.Summary)
	} else if result.Summary != "" && len(result.Issues) > 0 {
		tw.printf("\n%s%s%s\n", colorDim, result.Summary, colorReset)
	}

	if result.AIError != "" {
		tw.printf("\n%sAI pass failed: %s%s\n", colorYellow, result.AIError, colorReset)
	}

	return tw.err
}

func severityFormat(s rules.Severity) (string, string) {
	switch s {
	case rules.Critical:
		return "CRITICAL", colorRed
	case rules.High:
		return "HIGH", colorRed
	case rules.Medium:
		return "MEDIUM", colorYellow
	case rules.Low:
		return "LOW", colorYellow
	default:
		return "INFO", colorCyan
	}
}
