package rules

import (
	"fmt"
	"regexp"
	"strings"
)

const maxCompositeColumns = 3

var (
	stringLiteralRe = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)
	tableAliasRe    = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z_][a-zA-Z0-9_$]*)(?:\s+(?:as\s+)?([a-zA-Z_][a-zA-Z0-9_$]*))?`)
	wherePredRe     = regexp.MustCompile(`(?i)([a-zA-Z_][a-zA-Z0-9_$]*(?:\.[a-zA-Z_][a-zA-Z0-9_$]*)?)\s*(?:!=|<>|>=|<=|=|>|<|\s(?:like|in|between)\b)`)
	whereClauseRe   = regexp.MustCompile(`(?is)\bwhere\b(.*?)(?:\bgroup\s+by\b|\border\s+by\b|\blimit\b|\bhaving\b|$)`)
	joinEqualityRe  = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_$]*)\.([a-zA-Z_][a-zA-Z0-9_$]*)\s*=\s*([a-zA-Z_][a-zA-Z0-9_$]*)\.([a-zA-Z_][a-zA-Z0-9_$]*)`)
)

// sqlKeywords are tokens the predicate regexes can capture that are never
// column or alias names.
var sqlKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "where": true, "on": true,
	"in": true, "like": true, "between": true, "is": true, "null": true,
	"select": true, "from": true, "join": true, "inner": true, "left": true,
	"right": true, "full": true, "cross": true, "outer": true, "group": true,
	"order": true, "limit": true, "offset": true, "having": true, "union": true,
	"as": true, "by": true, "asc": true, "desc": true, "set": true,
	"using": true, "values": true, "exists": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "distinct": true,
}

// SuggestIndexes derives advisory index DDL from WHERE comparison predicates
// and JOIN equality conditions. One single-column suggestion per distinct
// column; a table that accumulates two or more predicate columns also gets a
// composite suggestion over the first three, in order of appearance.
func SuggestIndexes(sql string) []Suggestion {
	cleaned := stringLiteralRe.ReplaceAllString(sql, "''")

	aliases, tableOrder := extractAliases(cleaned)
	if len(tableOrder) == 0 {
		return nil
	}
	primary := tableOrder[0]

	type tableCols struct {
		cols []string
		seen map[string]bool
	}
	byTable := make(map[string]*tableCols)
	var touched []string

	add := func(table, col string) {
		table = strings.ToLower(table)
		col = strings.ToLower(col)
		if sqlKeywords[col] {
			return
		}
		tc := byTable[table]
		if tc == nil {
			tc = &tableCols{seen: make(map[string]bool)}
			byTable[table] = tc
			touched = append(touched, table)
		}
		if !tc.seen[col] {
			tc.seen[col] = true
			tc.cols = append(tc.cols, col)
		}
	}

	resolve := func(name string) string {
		if t, ok := aliases[strings.ToLower(name)]; ok {
			return t
		}
		return name
	}

	if m := whereClauseRe.FindStringSubmatch(cleaned); m != nil {
		for _, pred := range wherePredRe.FindAllStringSubmatch(m[1], -1) {
			ref := pred[1]
			if i := strings.IndexByte(ref, '.'); i >= 0 {
				add(resolve(ref[:i]), ref[i+1:])
			} else {
				add(primary, ref)
			}
		}
	}

	for _, eq := range joinEqualityRe.FindAllStringSubmatch(cleaned, -1) {
		add(resolve(eq[1]), eq[2])
		add(resolve(eq[3]), eq[4])
	}

	var suggestions []Suggestion
	for _, table := range touched {
		tc := byTable[table]
		for _, col := range tc.cols {
			suggestions = append(suggestions, Suggestion{
				Table:   table,
				Columns: []string{col},
				DDL:     fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s (%s);", table, col, table, col),
				Reason:  fmt.Sprintf("Column %s is used in a filter or join predicate", col),
			})
		}
		if len(tc.cols) >= 2 {
			cols := tc.cols
			if len(cols) > maxCompositeColumns {
				cols = cols[:maxCompositeColumns]
			}
			suggestions = append(suggestions, Suggestion{
				Table:   table,
				Columns: cols,
				DDL:     fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s (%s);", table, strings.Join(cols, "_"), table, strings.Join(cols, ", ")),
				Reason:  fmt.Sprintf("Composite index covering %d predicate columns on %s", len(cols), table),
			})
		}
	}
	return suggestions
}

// extractAliases maps alias -> table for every FROM/JOIN clause and returns
// tables in order of appearance. Unaliased tables map to themselves.
func extractAliases(sql string) (map[string]string, []string) {
	aliases := make(map[string]string)
	var order []string
	seen := make(map[string]bool)

	for _, m := range tableAliasRe.FindAllStringSubmatch(sql, -1) {
		table := strings.ToLower(m[1])
		if sqlKeywords[table] {
			continue
		}
		alias := strings.ToLower(m[2])
		aliases[table] = table
		if alias != "" && !sqlKeywords[alias] {
			aliases[alias] = table
		}
		if !seen[table] {
			seen[table] = true
			order = append(order, table)
		}
	}
	return aliases, order
}
