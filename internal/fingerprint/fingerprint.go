package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// StatementKind is the coarse class of a SQL statement.
type StatementKind string

const (
	KindSelect StatementKind = "SELECT"
	KindInsert StatementKind = "INSERT"
	KindUpdate StatementKind = "UPDATE"
	KindDelete StatementKind = "DELETE"
	KindDDL    StatementKind = "DDL"
	KindOther  StatementKind = "OTHER"
)

var (
	whitespaceRe    = regexp.MustCompile(`\s+`)
	singleQuotedRe  = regexp.MustCompile(`'(?:[^'\\]|\\.|'')*'`)
	doubleQuotedRe  = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)
	hexLiteralRe    = regexp.MustCompile(`\b0[xX][0-9a-fA-F]+\b`)
	numberRe        = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	signedPlaceRe   = regexp.MustCompile(`([\s(,=<>])-\?`)
	inListRe        = regexp.MustCompile(`\(\s*\?(?:\s*,\s*\?)+\s*\)`)
	limitOffsetRe   = regexp.MustCompile(`(?i)\blimit\s+\?(?:\s*,\s*\?|\s+offset\s+\?)?`)
	bareOffsetRe    = regexp.MustCompile(`(?i)\boffset\s+\?`)
	fromJoinTableRe = regexp.MustCompile("(?i)\\b(?:from|join)\\s+[`\"]?([a-zA-Z_][a-zA-Z0-9_$]*(?:\\.[a-zA-Z_][a-zA-Z0-9_$]*)?)[`\"]?")
)

// Fingerprint normalizes raw SQL into a stable template and returns it with a
// content hash. Literals become placeholders so structurally identical queries
// collapse to one fingerprint. Normalizing an already-normalized string is a
// no-op.
func Fingerprint(sql string) (string, string) {
	fp := Normalize(sql)
	sum := sha256.Sum256([]byte(fp))
	return fp, hex.EncodeToString(sum[:])
}

// Normalize returns the placeholder template of a SQL string. Used only for
// grouping, never for execution.
func Normalize(sql string) string {
	s := strings.TrimSpace(sql)
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = singleQuotedRe.ReplaceAllString(s, "?")
	s = doubleQuotedRe.ReplaceAllString(s, "?")
	s = hexLiteralRe.ReplaceAllString(s, "?")
	s = numberRe.ReplaceAllString(s, "?")
	s = signedPlaceRe.ReplaceAllString(s, "$1?")
	s = inListRe.ReplaceAllString(s, "(?)")
	s = limitOffsetRe.ReplaceAllString(s, "LIMIT ?")
	s = bareOffsetRe.ReplaceAllString(s, "OFFSET ?")
	s = strings.TrimSuffix(strings.TrimSpace(s), ";")
	return strings.TrimSpace(s)
}

// ExtractTables returns the ordered unique table names referenced by FROM and
// JOIN clauses. Best effort over text, not a parser: subqueries and exotic
// quoting are skipped rather than guessed at.
func ExtractTables(sql string) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, m := range fromJoinTableRe.FindAllStringSubmatch(sql, -1) {
		name := m[1]
		key := strings.ToLower(name)
		if keywordTables[key] {
			continue
		}
		if !seen[key] {
			seen[key] = true
			tables = append(tables, name)
		}
	}
	return tables
}

// keywordTables are tokens the FROM/JOIN regex can capture that are never
// table names (e.g. "FROM (SELECT ..." captured via "select" after rewrites).
var keywordTables = map[string]bool{
	"select": true,
	"dual":   true,
}

// Classify returns the coarse statement kind based on the leading keyword.
func Classify(sql string) StatementKind {
	s := strings.ToUpper(strings.TrimSpace(sql))
	switch {
	case strings.HasPrefix(s, "SELECT"), strings.HasPrefix(s, "WITH"):
		return KindSelect
	case strings.HasPrefix(s, "INSERT"), strings.HasPrefix(s, "REPLACE"):
		return KindInsert
	case strings.HasPrefix(s, "UPDATE"):
		return KindUpdate
	case strings.HasPrefix(s, "DELETE"):
		return KindDelete
	case strings.HasPrefix(s, "CREATE"), strings.HasPrefix(s, "ALTER"),
		strings.HasPrefix(s, "DROP"), strings.HasPrefix(s, "TRUNCATE"):
		return KindDDL
	default:
		return KindOther
	}
}

// IsSafeToExplain reports whether running EXPLAIN on the statement cannot
// mutate data. Only plain SELECTs qualify.
func IsSafeToExplain(sql string) bool {
	return Classify(sql) == KindSelect && !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "WITH")
}
