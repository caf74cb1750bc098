package rules

import "fmt"

// Severity orders how urgently an issue should be fixed. The lattice is
// strict: Info < Low < Medium < High < Critical.
type Severity int

const (
	Info Severity = iota
	Low
	Medium
	High
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

// IssueKind identifies which heuristic produced an issue. Each rule owns
// exactly one or two kinds.
type IssueKind string

const (
	KindSelectStar          IssueKind = "SELECT_STAR"
	KindNoWhereClause       IssueKind = "NO_WHERE_CLAUSE"
	KindLeadingWildcard     IssueKind = "LEADING_WILDCARD_LIKE"
	KindExamineRatio        IssueKind = "HIGH_EXAMINE_RATIO"
	KindExtremeExamineRatio IssueKind = "EXTREME_EXAMINE_RATIO"
	KindSlowDuration        IssueKind = "SLOW_DURATION"
	KindExcessiveOr         IssueKind = "EXCESSIVE_OR"
	KindFunctionOnColumn    IssueKind = "FUNCTION_ON_COLUMN"
	KindImplicitConversion  IssueKind = "IMPLICIT_CONVERSION"
	KindCorrelatedSubquery  IssueKind = "CORRELATED_SUBQUERY"
	KindDistinctWithJoin    IssueKind = "DISTINCT_WITH_JOIN"
	KindOrderWithoutLimit   IssueKind = "ORDER_BY_WITHOUT_LIMIT"
	KindUnionWithoutAll     IssueKind = "UNION_WITHOUT_ALL"
	KindJoinMissingIndex    IssueKind = "JOIN_MISSING_INDEX"
	KindFilesort            IssueKind = "FILESORT"
	KindTempTable           IssueKind = "TEMP_TABLE"
	KindFullTableScan       IssueKind = "FULL_TABLE_SCAN"
	KindLargeOffset         IssueKind = "LARGE_OFFSET"
	KindNotIn               IssueKind = "NOT_IN"
	KindNestedLoopExplosion IssueKind = "NESTED_LOOP_EXPLOSION"
	KindHighLockTime        IssueKind = "HIGH_LOCK_TIME"
	KindLockContention      IssueKind = "LOCK_CONTENTION"
)

// Issue is one problem detected by a single rule.
type Issue struct {
	Kind           IssueKind `json:"kind"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation"`
}

// Suggestion is advisory index DDL derived from predicate columns. Never
// executed and never validated against the live schema.
type Suggestion struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	DDL     string   `json:"ddl"`
	Reason  string   `json:"reason"`
}

// Result is the deterministic output of one rule-engine pass.
type Result struct {
	Issues      []Issue      `json:"issues"`
	Suggestions []Suggestion `json:"suggestions"`
	Priority    Severity     `json:"priority"`
	Assessment  string       `json:"assessment"`
}

// WellOptimizedAssessment is returned when no rule fires.
const WellOptimizedAssessment = "Query appears to be well-optimized. No issues detected by heuristic analysis."
