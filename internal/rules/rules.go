package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sqltriage/sqltriage/internal/fingerprint"
	"github.com/sqltriage/sqltriage/internal/plan"
	"github.com/sqltriage/sqltriage/internal/record"
)

const (
	ExamineRatioMedium   = 10
	ExamineRatioHigh     = 100
	ExamineRatioCritical = 1000

	DurationMediumMS   = 1000
	DurationHighMS     = 2000
	DurationCriticalMS = 5000

	OrCountThreshold = 3

	FullScanRowsHigh     = 1000
	FullScanRowsCritical = 10000

	OffsetMedium = 1000
	OffsetHigh   = 10000

	NestedLoopRowProduct = 1000000

	LockTimeHighMS   = 1000
	LockTimeMediumMS = 100
	LockRatioMedium  = 0.30
)

// Input is everything a rule may inspect. norm is the lowercased,
// whitespace-collapsed SQL so rules don't each re-normalize.
type Input struct {
	SQL     string
	norm    string
	Stmt    fingerprint.StatementKind
	Metrics record.Metrics
	Plan    plan.Finding
}

type Rule func(in Input) []Issue

var defaultRules = []Rule{
	checkSelectStar,
	checkNoWhereClause,
	checkLeadingWildcard,
	checkExamineRatio,
	checkDuration,
	checkExcessiveOr,
	checkFunctionOnColumn,
	checkImplicitConversion,
	checkCorrelatedSubquery,
	checkDistinctWithJoin,
	checkOrderWithoutLimit,
	checkUnionWithoutAll,
	checkJoinMissingIndex,
	checkFilesort,
	checkTempTable,
	checkFullScan,
	checkLargeOffset,
	checkNotIn,
	checkNestedLoopExplosion,
	checkLockTime,
}

var collapseRe = regexp.MustCompile(`\s+`)

// Analyze runs every rule against the query and aggregates issues, index
// suggestions and the overall priority. It is pure and never fails: malformed
// input degrades to whichever rules can still fire.
func Analyze(sql string, m record.Metrics, f plan.Finding) Result {
	in := Input{
		SQL:     sql,
		norm:    strings.ToLower(collapseRe.ReplaceAllString(strings.TrimSpace(sql), " ")),
		Stmt:    fingerprint.Classify(sql),
		Metrics: m,
		Plan:    f,
	}

	var issues []Issue
	for _, rule := range defaultRules {
		issues = append(issues, rule(in)...)
	}

	// Priority is the running maximum across issues; it only moves upward.
	priority := Info
	for _, issue := range issues {
		if issue.Severity > priority {
			priority = issue.Severity
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity > issues[j].Severity
	})

	assessment := WellOptimizedAssessment
	if len(issues) > 0 {
		assessment = fmt.Sprintf("Detected %d issue(s); highest severity %s: %s",
			len(issues), priority, issues[0].Message)
	}

	return Result{
		Issues:      issues,
		Suggestions: SuggestIndexes(sql),
		Priority:    priority,
		Assessment:  assessment,
	}
}

var selectStarRe = regexp.MustCompile(`(?is)\bselect\s+\*`)

func checkSelectStar(in Input) []Issue {
	if !selectStarRe.MatchString(in.SQL) {
		return nil
	}
	return []Issue{{
		Kind:           KindSelectStar,
		Severity:       Medium,
		Message:        "Query selects all columns with SELECT *",
		Recommendation: "List only the columns you need; SELECT * prevents covering-index use and inflates row width",
	}}
}

var (
	whereRe   = regexp.MustCompile(`\bwhere\b`)
	groupByRe = regexp.MustCompile(`\bgroup by\b`)
	countRe   = regexp.MustCompile(`\bcount\s*\(\s*\*?\s*\)`)
)

func checkNoWhereClause(in Input) []Issue {
	switch in.Stmt {
	case fingerprint.KindSelect, fingerprint.KindUpdate, fingerprint.KindDelete:
	default:
		return nil
	}
	if whereRe.MatchString(in.norm) {
		return nil
	}
	if groupByRe.MatchString(in.norm) || countRe.MatchString(in.norm) {
		return nil
	}
	return []Issue{{
		Kind:           KindNoWhereClause,
		Severity:       High,
		Message:        fmt.Sprintf("%s statement has no WHERE clause", in.Stmt),
		Recommendation: "Add a WHERE clause to avoid touching every row in the table",
	}}
}

var leadingWildcardRe = regexp.MustCompile(`(?i)like\s+['"]%`)

// Leading-wildcard LIKE is Medium on its own; when the plan confirms a full
// scan the two conditions compound and the issue escalates to High.
func checkLeadingWildcard(in Input) []Issue {
	if !leadingWildcardRe.MatchString(in.SQL) {
		return nil
	}
	severity := Medium
	message := "LIKE pattern starts with a wildcard, which disables index range scans"
	if in.Plan.FullScan {
		severity = High
		message += " and the plan confirms a full scan"
	}
	return []Issue{{
		Kind:           KindLeadingWildcard,
		Severity:       severity,
		Message:        message,
		Recommendation: "Avoid leading '%' in LIKE; consider full-text search or a reversed-column index",
	}}
}

func checkExamineRatio(in Input) []Issue {
	examined := in.Metrics.RowsExamined
	if examined <= 0 {
		return nil
	}
	sent := in.Metrics.RowsReturned
	if sent < 1 {
		sent = 1
	}
	ratio := float64(examined) / float64(sent)

	switch {
	case ratio > ExamineRatioCritical:
		return []Issue{{
			Kind:           KindExtremeExamineRatio,
			Severity:       Critical,
			Message:        fmt.Sprintf("Query examined %d rows to return %d (ratio %.0f)", examined, in.Metrics.RowsReturned, ratio),
			Recommendation: "Add an index matching the WHERE predicates so the engine reads only matching rows",
		}}
	case ratio > ExamineRatioHigh:
		return []Issue{{
			Kind:           KindExamineRatio,
			Severity:       High,
			Message:        fmt.Sprintf("Query examined %d rows to return %d (ratio %.0f)", examined, in.Metrics.RowsReturned, ratio),
			Recommendation: "Add or extend an index to reduce the number of rows examined",
		}}
	case ratio > ExamineRatioMedium:
		return []Issue{{
			Kind:           KindExamineRatio,
			Severity:       Medium,
			Message:        fmt.Sprintf("Query examined %d rows to return %d (ratio %.0f)", examined, in.Metrics.RowsReturned, ratio),
			Recommendation: "Check index selectivity for the WHERE predicates",
		}}
	}
	return nil
}

func checkDuration(in Input) []Issue {
	d := in.Metrics.DurationMS
	var severity Severity
	switch {
	case d > DurationCriticalMS:
		severity = Critical
	case d > DurationHighMS:
		severity = High
	case d > DurationMediumMS:
		severity = Medium
	default:
		return nil
	}
	return []Issue{{
		Kind:           KindSlowDuration,
		Severity:       severity,
		Message:        fmt.Sprintf("Query took %.0f ms to execute", d),
		Recommendation: "Investigate the execution plan; long-running queries hold connections and locks",
	}}
}

var orTokenRe = regexp.MustCompile(`\bor\b`)

func checkExcessiveOr(in Input) []Issue {
	count := len(orTokenRe.FindAllString(in.norm, -1))
	if count < OrCountThreshold {
		return nil
	}
	return []Issue{{
		Kind:           KindExcessiveOr,
		Severity:       Medium,
		Message:        fmt.Sprintf("Query contains %d OR conditions", count),
		Recommendation: "Rewrite OR chains as IN lists or UNION ALL branches so each can use an index",
	}}
}

var functionOnColumnRe = regexp.MustCompile(`(?is)\bwhere\b.*?\b(upper|lower|date|date_format|year|month|day|substring|substr|trim|cast|convert|coalesce)\s*\(`)

func checkFunctionOnColumn(in Input) []Issue {
	m := functionOnColumnRe.FindStringSubmatch(in.norm)
	if m == nil {
		return nil
	}
	return []Issue{{
		Kind:           KindFunctionOnColumn,
		Severity:       High,
		Message:        fmt.Sprintf("WHERE clause wraps a column in %s(), defeating index use", strings.ToUpper(m[1])),
		Recommendation: "Move the function to the constant side of the comparison, or add a functional index",
	}}
}

var implicitConversionRe = regexp.MustCompile(`(?i)\b[a-z_][a-z0-9_.]*\s*=\s*'\d+'`)

func checkImplicitConversion(in Input) []Issue {
	if !implicitConversionRe.MatchString(in.SQL) {
		return nil
	}
	return []Issue{{
		Kind:           KindImplicitConversion,
		Severity:       Medium,
		Message:        "Numeric value compared as a quoted string; the engine may cast the column and skip the index",
		Recommendation: "Match the literal type to the column type",
	}}
}

var (
	topLevelFromRe = regexp.MustCompile(`\bfrom\b`)
	subSelectRe    = regexp.MustCompile(`\(\s*select\b`)
)

func checkCorrelatedSubquery(in Input) []Issue {
	if in.Stmt != fingerprint.KindSelect {
		return nil
	}
	loc := topLevelFromRe.FindStringIndex(in.norm)
	if loc == nil {
		return nil
	}
	if !subSelectRe.MatchString(in.norm[:loc[0]]) {
		return nil
	}
	return []Issue{{
		Kind:           KindCorrelatedSubquery,
		Severity:       High,
		Message:        "Subquery in the SELECT list executes once per output row",
		Recommendation: "Rewrite the subquery as a JOIN or a lateral/derived table",
	}}
}

var (
	distinctRe = regexp.MustCompile(`\bdistinct\b`)
	joinRe     = regexp.MustCompile(`\bjoin\b`)
)

func checkDistinctWithJoin(in Input) []Issue {
	if !distinctRe.MatchString(in.norm) || !joinRe.MatchString(in.norm) {
		return nil
	}
	return []Issue{{
		Kind:           KindDistinctWithJoin,
		Severity:       Medium,
		Message:        "DISTINCT combined with JOIN usually signals row multiplication from the join",
		Recommendation: "Fix the join condition or aggregate before joining instead of deduplicating afterwards",
	}}
}

var (
	orderByRe = regexp.MustCompile(`\border by\b`)
	limitRe   = regexp.MustCompile(`\blimit\b`)
)

func checkOrderWithoutLimit(in Input) []Issue {
	if !orderByRe.MatchString(in.norm) || limitRe.MatchString(in.norm) {
		return nil
	}
	return []Issue{{
		Kind:           KindOrderWithoutLimit,
		Severity:       Low,
		Message:        "ORDER BY without LIMIT sorts the full result set",
		Recommendation: "Add a LIMIT if the caller only consumes the first rows",
	}}
}

var (
	unionRe    = regexp.MustCompile(`\bunion\b`)
	unionAllRe = regexp.MustCompile(`\bunion\s+all\b`)
)

func checkUnionWithoutAll(in Input) []Issue {
	unions := len(unionRe.FindAllString(in.norm, -1))
	alls := len(unionAllRe.FindAllString(in.norm, -1))
	if unions == 0 || unions == alls {
		return nil
	}
	return []Issue{{
		Kind:           KindUnionWithoutAll,
		Severity:       Medium,
		Message:        "UNION without ALL deduplicates via an implicit sort of the combined result",
		Recommendation: "Use UNION ALL when duplicates are impossible or acceptable",
	}}
}

// join-side access types that mean the table is read without a usable index.
var unindexedAccess = map[string]bool{
	"ALL":      true,
	"index":    true,
	"Seq Scan": true,
}

func checkJoinMissingIndex(in Input) []Issue {
	if len(in.Plan.Tables) < 2 {
		return nil
	}
	var issues []Issue
	for _, t := range in.Plan.Tables {
		if !unindexedAccess[t.AccessType] || t.Key != "" {
			continue
		}
		issues = append(issues, Issue{
			Kind:           KindJoinMissingIndex,
			Severity:       High,
			Message:        fmt.Sprintf("Join reads table %s with access type %s and no index", t.Name, t.AccessType),
			Recommendation: fmt.Sprintf("Add an index on the join column of %s", t.Name),
		})
	}
	return issues
}

func checkFilesort(in Input) []Issue {
	if !in.Plan.Filesort {
		return nil
	}
	return []Issue{{
		Kind:           KindFilesort,
		Severity:       Medium,
		Message:        "Execution plan reports a filesort",
		Recommendation: "Add an index matching the ORDER BY columns so rows come out pre-sorted",
	}}
}

func checkTempTable(in Input) []Issue {
	if !in.Plan.TempTable {
		return nil
	}
	return []Issue{{
		Kind:           KindTempTable,
		Severity:       Medium,
		Message:        "Execution plan materializes an intermediate temporary table",
		Recommendation: "Simplify GROUP BY/ORDER BY combinations or add a supporting index",
	}}
}

func checkFullScan(in Input) []Issue {
	if !in.Plan.FullScan {
		return nil
	}
	rows := in.Plan.EstimatedRows
	var severity Severity
	switch {
	case rows > FullScanRowsCritical:
		severity = Critical
	case rows > FullScanRowsHigh:
		severity = High
	default:
		return nil
	}
	return []Issue{{
		Kind:           KindFullTableScan,
		Severity:       severity,
		Message:        fmt.Sprintf("Full table scan over an estimated %d rows", rows),
		Recommendation: "Add an index matching the WHERE predicates to avoid scanning the whole table",
	}}
}

var (
	offsetNumRe     = regexp.MustCompile(`\boffset\s+(\d+)`)
	limitCommaNumRe = regexp.MustCompile(`\blimit\s+(\d+)\s*,`)
)

func checkLargeOffset(in Input) []Issue {
	offset := int64(-1)
	if m := offsetNumRe.FindStringSubmatch(in.norm); m != nil {
		offset, _ = strconv.ParseInt(m[1], 10, 64)
	} else if m := limitCommaNumRe.FindStringSubmatch(in.norm); m != nil {
		offset, _ = strconv.ParseInt(m[1], 10, 64)
	}

	var severity Severity
	switch {
	case offset > OffsetHigh:
		severity = High
	case offset > OffsetMedium:
		severity = Medium
	default:
		return nil
	}
	return []Issue{{
		Kind:           KindLargeOffset,
		Severity:       severity,
		Message:        fmt.Sprintf("Pagination skips %d rows via OFFSET; the engine still reads and discards them", offset),
		Recommendation: "Use keyset pagination (WHERE id > last_seen ORDER BY id LIMIT n) instead of large offsets",
	}}
}

var notInRe = regexp.MustCompile(`\bnot\s+in\b`)

func checkNotIn(in Input) []Issue {
	if !notInRe.MatchString(in.norm) {
		return nil
	}
	return []Issue{{
		Kind:           KindNotIn,
		Severity:       Low,
		Message:        "NOT IN forces a full comparison against the inner set and breaks on NULLs",
		Recommendation: "Prefer NOT EXISTS or an anti-join",
	}}
}

func checkNestedLoopExplosion(in Input) []Issue {
	product := in.Plan.RowProduct()
	if product <= NestedLoopRowProduct {
		return nil
	}
	return []Issue{{
		Kind:           KindNestedLoopExplosion,
		Severity:       High,
		Message:        fmt.Sprintf("Estimated join row product is %d across %d tables", product, len(in.Plan.Tables)),
		Recommendation: "Verify join conditions and indexes; the planner expects a very large intermediate result",
	}}
}

func checkLockTime(in Input) []Issue {
	lock := in.Metrics.LockTimeMS
	if lock > LockTimeHighMS {
		return []Issue{{
			Kind:           KindHighLockTime,
			Severity:       High,
			Message:        fmt.Sprintf("Query waited %.0f ms on locks", lock),
			Recommendation: "Look for long-running transactions or DDL holding locks on the touched tables",
		}}
	}
	if in.Metrics.DurationMS > 0 && lock > LockTimeMediumMS && lock/in.Metrics.DurationMS > LockRatioMedium {
		return []Issue{{
			Kind:           KindLockContention,
			Severity:       Medium,
			Message:        fmt.Sprintf("Lock wait is %.0f%% of total query time (%.0f of %.0f ms)", 100*lock/in.Metrics.DurationMS, lock, in.Metrics.DurationMS),
			Recommendation: "Reduce transaction scope or batch writes touching the same rows",
		}}
	}
	return nil
}
