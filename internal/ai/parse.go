package ai

import (
	"regexp"
	"strings"

	"github.com/sqltriage/sqltriage/internal/sandbox"
)

var (
	fencedBlockRe   = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\n(.*?)```")
	requestMarkerRe = regexp.MustCompile(`(?i)^\s*--\s*request:\s*(.*)$`)
)

// ParseQueryRequests extracts sandboxed-query requests from an AI response.
// A request is a fenced code block containing a "-- Request: <reason>" comment
// line; the remaining non-comment lines are the SQL. Blocks without the
// marker are treated as prose examples and ignored, so a final analysis that
// quotes SQL never triggers execution. The parser never fails; anything it
// cannot read yields nil.
func ParseQueryRequests(text string) []sandbox.Request {
	var requests []sandbox.Request
	for _, m := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		req, ok := parseBlock(m[1])
		if ok {
			requests = append(requests, req)
		}
	}
	return requests
}

func parseBlock(block string) (sandbox.Request, bool) {
	var reason string
	var sqlLines []string
	marked := false

	for _, line := range strings.Split(block, "\n") {
		if m := requestMarkerRe.FindStringSubmatch(line); m != nil {
			if !marked {
				marked = true
				reason = strings.TrimSpace(m[1])
			}
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		sqlLines = append(sqlLines, line)
	}

	sql := strings.TrimSpace(strings.Join(sqlLines, "\n"))
	if !marked || sql == "" {
		return sandbox.Request{}, false
	}
	return sandbox.Request{SQL: sql, Reason: reason}, true
}
