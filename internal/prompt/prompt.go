// Package prompt assembles the conversation text for the AI orchestration
// loop. Pure string building, no I/O.
package prompt

import (
	"fmt"
	"strings"

	"github.com/sqltriage/sqltriage/internal/record"
	"github.com/sqltriage/sqltriage/internal/sandbox"
)

// Input carries everything the initial prompt needs.
type Input struct {
	SQL     string
	Kind    record.DatabaseKind
	Metrics record.Metrics
	Plan    string
	Schema  string
}

// Initial builds the opening prompt: query, metrics, plan and schema excerpt,
// plus the request protocol the orchestrator's parser understands.
func Initial(in Input) string {
	plan := in.Plan
	if plan == "" {
		plan = "(not available)"
	}
	schema := in.Schema
	if schema == "" {
		schema = "(not available)"
	}

	return fmt.Sprintf(`You are a database performance expert analyzing a slow %s query.

Slow Query:
%s

Execution Metrics:
- duration: %.0f ms
- lock time: %.0f ms
- rows examined: %d
- rows returned: %d

Execution Plan (JSON):
%s

Schema:
%s

You may request additional read-only data from the database before giving
your final analysis. To request a query, emit a fenced SQL block whose first
line is a comment starting with "-- Request:" describing why you need it:

`+"```sql"+`
-- Request: check index cardinality on the filtered column
SHOW INDEX FROM orders
`+"```"+`

Only SELECT, SHOW and EXPLAIN statements will be executed; results are capped
at %d rows. When you have enough information, respond WITHOUT any request
block and give your final analysis: root cause, concrete fix, expected
speedup, and your confidence (0-1).`,
		in.Kind, strings.TrimSpace(in.SQL),
		in.Metrics.DurationMS, in.Metrics.LockTimeMS,
		in.Metrics.RowsExamined, in.Metrics.RowsReturned,
		plan, schema, sandbox.DefaultRowLimit)
}

// QueryResults renders sandboxed execution outcomes as the next user turn.
// Errors go back verbatim so the model can correct its own request.
func QueryResults(results []sandbox.Result) string {
	var b strings.Builder
	b.WriteString("Query results:\n")
	for i, res := range results {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, res.SQL)
		if res.Err != "" {
			fmt.Fprintf(&b, "error: %s\n", res.Err)
			continue
		}
		if len(res.Columns) > 0 {
			b.WriteString(strings.Join(res.Columns, " | "))
			b.WriteString("\n")
		}
		for _, row := range res.Rows {
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "(%d rows)\n", res.RowCount)
	}
	b.WriteString("\nContinue your analysis. Respond without a request block when done.")
	return b.String()
}
