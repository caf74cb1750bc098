package rules

import (
	"reflect"
	"strings"
	"testing"

	"github.com/sqltriage/sqltriage/internal/plan"
	"github.com/sqltriage/sqltriage/internal/record"
)

// --- Helpers ---

func findByKind(issues []Issue, kind IssueKind) *Issue {
	for i := range issues {
		if issues[i].Kind == kind {
			return &issues[i]
		}
	}
	return nil
}

func requireIssue(t *testing.T, issues []Issue, kind IssueKind, want Severity) {
	t.Helper()
	issue := findByKind(issues, kind)
	if issue == nil {
		t.Fatalf("expected issue %s, got %v", kind, issues)
	}
	if issue.Severity != want {
		t.Errorf("%s severity = %v, want %v", kind, issue.Severity, want)
	}
}

func requireNoIssue(t *testing.T, issues []Issue, kind IssueKind) {
	t.Helper()
	if issue := findByKind(issues, kind); issue != nil {
		t.Fatalf("unexpected issue %s: %+v", kind, issue)
	}
}

// --- Scenario tests ---

func TestAnalyze_SelectStarNoWhere(t *testing.T) {
	res := Analyze("SELECT * FROM orders", record.Metrics{
		RowsExamined: 500000,
		RowsReturned: 500000,
	}, plan.Finding{})

	requireIssue(t, res.Issues, KindSelectStar, Medium)
	requireIssue(t, res.Issues, KindNoWhereClause, High)
	requireNoIssue(t, res.Issues, KindExamineRatio)
	if res.Priority != High {
		t.Errorf("priority = %v, want High", res.Priority)
	}
}

func TestAnalyze_ExtremeExamineRatio(t *testing.T) {
	res := Analyze("SELECT id FROM t WHERE x=1", record.Metrics{
		RowsExamined: 1000000,
		RowsReturned: 10,
	}, plan.Finding{})

	requireIssue(t, res.Issues, KindExtremeExamineRatio, Critical)
	if res.Priority != Critical {
		t.Errorf("priority = %v, want Critical", res.Priority)
	}
}

func TestAnalyze_WellOptimized(t *testing.T) {
	res := Analyze("SELECT id FROM t WHERE x = 1 LIMIT 10", record.Metrics{
		RowsExamined: 5,
		RowsReturned: 5,
	}, plan.Finding{})

	if len(res.Issues) != 0 {
		t.Fatalf("expected no issues, got %v", res.Issues)
	}
	if res.Priority != Info {
		t.Errorf("priority = %v, want Info", res.Priority)
	}
	if !strings.HasPrefix(res.Assessment, "Query appears to be well-optimized") {
		t.Errorf("assessment = %q, want well-optimized message", res.Assessment)
	}
}

// --- Property tests ---

func TestAnalyze_Deterministic(t *testing.T) {
	sql := "SELECT * FROM orders o JOIN users u ON o.user_id = u.id WHERE o.status = 'open' ORDER BY o.created_at"
	m := record.Metrics{DurationMS: 2500, RowsExamined: 100000, RowsReturned: 50}
	f := plan.Finding{FullScan: true, Filesort: true, EstimatedRows: 100000}

	first := Analyze(sql, m, f)
	for i := 0; i < 5; i++ {
		again := Analyze(sql, m, f)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\nfirst=%+v\nagain=%+v", i, first, again)
		}
	}
}

func TestAnalyze_PriorityIsMaxSeverity(t *testing.T) {
	// Low-severity rule fires after a critical one; priority must stay at the max.
	res := Analyze("SELECT id FROM t WHERE x NOT IN (1,2) ORDER BY id", record.Metrics{
		RowsExamined: 2000000,
		RowsReturned: 1,
	}, plan.Finding{})

	requireIssue(t, res.Issues, KindExtremeExamineRatio, Critical)
	requireIssue(t, res.Issues, KindNotIn, Low)
	requireIssue(t, res.Issues, KindOrderWithoutLimit, Low)
	if res.Priority != Critical {
		t.Errorf("priority = %v, want Critical", res.Priority)
	}
	for i := 1; i < len(res.Issues); i++ {
		if res.Issues[i].Severity > res.Issues[i-1].Severity {
			t.Errorf("issues not sorted by severity: %v", res.Issues)
		}
	}
}

// --- Per-rule tests ---

func TestCheckLeadingWildcard(t *testing.T) {
	res := Analyze("SELECT id FROM t WHERE name LIKE '%smith'", record.Metrics{}, plan.Finding{})
	requireIssue(t, res.Issues, KindLeadingWildcard, Medium)

	withScan := Analyze("SELECT id FROM t WHERE name LIKE '%smith'", record.Metrics{},
		plan.Finding{FullScan: true})
	requireIssue(t, withScan.Issues, KindLeadingWildcard, High)
}

func TestCheckNoWhere_GroupByExempt(t *testing.T) {
	res := Analyze("SELECT status, COUNT(*) FROM orders GROUP BY status", record.Metrics{}, plan.Finding{})
	requireNoIssue(t, res.Issues, KindNoWhereClause)
}

func TestCheckNoWhere_InsertExempt(t *testing.T) {
	res := Analyze("INSERT INTO t (a) VALUES (1)", record.Metrics{}, plan.Finding{})
	requireNoIssue(t, res.Issues, KindNoWhereClause)
}

func TestCheckDuration(t *testing.T) {
	cases := []struct {
		ms   float64
		want Severity
	}{
		{6000, Critical},
		{3000, High},
		{1500, Medium},
	}
	for _, tc := range cases {
		res := Analyze("SELECT id FROM t WHERE x = 1", record.Metrics{DurationMS: tc.ms}, plan.Finding{})
		requireIssue(t, res.Issues, KindSlowDuration, tc.want)
	}

	fast := Analyze("SELECT id FROM t WHERE x = 1", record.Metrics{DurationMS: 900}, plan.Finding{})
	requireNoIssue(t, fast.Issues, KindSlowDuration)
}

func TestCheckExcessiveOr(t *testing.T) {
	res := Analyze("SELECT id FROM t WHERE a = 1 OR b = 2 OR c = 3 OR d = 4", record.Metrics{}, plan.Finding{})
	requireIssue(t, res.Issues, KindExcessiveOr, Medium)

	two := Analyze("SELECT id FROM t WHERE a = 1 OR b = 2", record.Metrics{}, plan.Finding{})
	requireNoIssue(t, two.Issues, KindExcessiveOr)
}

func TestCheckFunctionOnColumn(t *testing.T) {
	res := Analyze("SELECT id FROM t WHERE UPPER(name) = 'X'", record.Metrics{}, plan.Finding{})
	requireIssue(t, res.Issues, KindFunctionOnColumn, High)
	issue := findByKind(res.Issues, KindFunctionOnColumn)
	if !strings.Contains(issue.Message, "UPPER") {
		t.Errorf("message should name the function, got %q", issue.Message)
	}
}

func TestCheckImplicitConversion(t *testing.T) {
	res := Analyze("SELECT id FROM t WHERE user_id = '123'", record.Metrics{}, plan.Finding{})
	requireIssue(t, res.Issues, KindImplicitConversion, Medium)

	clean := Analyze("SELECT id FROM t WHERE user_id = 123", record.Metrics{}, plan.Finding{})
	requireNoIssue(t, clean.Issues, KindImplicitConversion)
}

func TestCheckCorrelatedSubquery(t *testing.T) {
	sql := "SELECT id, (SELECT COUNT(*) FROM orders o WHERE o.user_id = u.id) FROM users u WHERE active = 1"
	res := Analyze(sql, record.Metrics{}, plan.Finding{})
	requireIssue(t, res.Issues, KindCorrelatedSubquery, High)

	plainSub := Analyze("SELECT id FROM users WHERE id IN (SELECT user_id FROM orders)", record.Metrics{}, plan.Finding{})
	requireNoIssue(t, plainSub.Issues, KindCorrelatedSubquery)
}

func TestCheckDistinctWithJoin(t *testing.T) {
	res := Analyze("SELECT DISTINCT u.id FROM users u JOIN orders o ON o.user_id = u.id WHERE u.active = 1", record.Metrics{}, plan.Finding{})
	requireIssue(t, res.Issues, KindDistinctWithJoin, Medium)
}

func TestCheckUnionWithoutAll(t *testing.T) {
	res := Analyze("SELECT id FROM a WHERE x = 1 UNION SELECT id FROM b WHERE x = 1", record.Metrics{}, plan.Finding{})
	requireIssue(t, res.Issues, KindUnionWithoutAll, Medium)

	all := Analyze("SELECT id FROM a WHERE x = 1 UNION ALL SELECT id FROM b WHERE x = 1", record.Metrics{}, plan.Finding{})
	requireNoIssue(t, all.Issues, KindUnionWithoutAll)
}

func TestCheckJoinMissingIndex(t *testing.T) {
	f := plan.Finding{
		FullScan: true,
		Tables: []plan.TableAccess{
			{Name: "users", AccessType: "ref", Key: "PRIMARY", Rows: 10},
			{Name: "orders", AccessType: "ALL", Rows: 5000},
		},
	}
	res := Analyze("SELECT u.id FROM users u JOIN orders o ON o.user_id = u.id WHERE u.id = 1", record.Metrics{}, f)
	requireIssue(t, res.Issues, KindJoinMissingIndex, High)
	issue := findByKind(res.Issues, KindJoinMissingIndex)
	if !strings.Contains(issue.Message, "orders") {
		t.Errorf("message should name the unindexed table, got %q", issue.Message)
	}
}

func TestCheckPlanFlags(t *testing.T) {
	f := plan.Finding{Filesort: true, TempTable: true}
	res := Analyze("SELECT id FROM t WHERE x = 1 ORDER BY y LIMIT 5", record.Metrics{}, f)
	requireIssue(t, res.Issues, KindFilesort, Medium)
	requireIssue(t, res.Issues, KindTempTable, Medium)
}

func TestCheckFullScanRows(t *testing.T) {
	big := Analyze("SELECT id FROM t WHERE x = 1", record.Metrics{},
		plan.Finding{FullScan: true, EstimatedRows: 50000})
	requireIssue(t, big.Issues, KindFullTableScan, Critical)

	medium := Analyze("SELECT id FROM t WHERE x = 1", record.Metrics{},
		plan.Finding{FullScan: true, EstimatedRows: 5000})
	requireIssue(t, medium.Issues, KindFullTableScan, High)

	small := Analyze("SELECT id FROM t WHERE x = 1", record.Metrics{},
		plan.Finding{FullScan: true, EstimatedRows: 100})
	requireNoIssue(t, small.Issues, KindFullTableScan)
}

func TestCheckLargeOffset(t *testing.T) {
	high := Analyze("SELECT id FROM t WHERE x = 1 ORDER BY id LIMIT 20 OFFSET 50000", record.Metrics{}, plan.Finding{})
	requireIssue(t, high.Issues, KindLargeOffset, High)

	mysqlStyle := Analyze("SELECT id FROM t WHERE x = 1 ORDER BY id LIMIT 5000, 20", record.Metrics{}, plan.Finding{})
	requireIssue(t, mysqlStyle.Issues, KindLargeOffset, Medium)

	small := Analyze("SELECT id FROM t WHERE x = 1 ORDER BY id LIMIT 20 OFFSET 40", record.Metrics{}, plan.Finding{})
	requireNoIssue(t, small.Issues, KindLargeOffset)
}

func TestCheckNestedLoopExplosion(t *testing.T) {
	f := plan.Finding{Tables: []plan.TableAccess{
		{Name: "a", AccessType: "ref", Key: "k", Rows: 2000},
		{Name: "b", AccessType: "ref", Key: "k", Rows: 900},
	}}
	res := Analyze("SELECT * FROM a JOIN b ON a.id = b.a_id WHERE a.x = 1", record.Metrics{}, f)
	requireIssue(t, res.Issues, KindNestedLoopExplosion, High)
}

func TestCheckLockTime(t *testing.T) {
	high := Analyze("SELECT id FROM t WHERE x = 1", record.Metrics{DurationMS: 3000, LockTimeMS: 1500}, plan.Finding{})
	requireIssue(t, high.Issues, KindHighLockTime, High)

	ratio := Analyze("SELECT id FROM t WHERE x = 1", record.Metrics{DurationMS: 500, LockTimeMS: 200}, plan.Finding{})
	requireIssue(t, ratio.Issues, KindLockContention, Medium)

	low := Analyze("SELECT id FROM t WHERE x = 1", record.Metrics{DurationMS: 500, LockTimeMS: 50}, plan.Finding{})
	requireNoIssue(t, low.Issues, KindHighLockTime)
	requireNoIssue(t, low.Issues, KindLockContention)
}
