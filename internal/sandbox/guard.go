package sandbox

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultRowLimit is appended to SELECTs that arrive without one.
const DefaultRowLimit = 1000

// ErrUnsafeStatement marks a statement rejected by the allow-list. It is
// reported back as a structured result, never executed.
type ErrUnsafeStatement struct {
	Statement string
}

func (e *ErrUnsafeStatement) Error() string {
	return fmt.Sprintf("statement rejected: only SELECT, SHOW and EXPLAIN are allowed, got %q", firstWord(e.Statement))
}

var allowedPrefixes = []string{"SELECT", "SHOW", "EXPLAIN"}

// Guard rejects any statement whose uppercased, trimmed form does not start
// with an allow-listed read-only verb. This is the core safety property of
// the sandbox; AI-requested SQL never reaches a driver without passing here.
func Guard(sql string) error {
	trimmed := strings.ToUpper(strings.TrimSpace(sql))
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return nil
		}
	}
	return &ErrUnsafeStatement{Statement: sql}
}

var limitRe = regexp.MustCompile(`(?i)\blimit\s+\d+`)

// EnsureLimit appends a row limit to SELECT statements that lack one so a
// runaway AI request cannot pull an entire table into the conversation.
func EnsureLimit(sql string, limit int) string {
	trimmed := strings.TrimSpace(sql)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(trimmed)), "SELECT") {
		return trimmed
	}
	if limitRe.MatchString(trimmed) {
		return trimmed
	}
	return fmt.Sprintf("%s LIMIT %d", trimmed, limit)
}

func firstWord(sql string) string {
	fields := strings.Fields(strings.TrimSpace(sql))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
