package plan

import (
	"fmt"

	"github.com/sqltriage/sqltriage/internal/record"
)

// Interpret translates a vendor-specific EXPLAIN JSON payload into a Finding.
// A malformed or empty payload yields a zero Finding plus the parse error;
// callers fall back to metric-only heuristics rather than failing the whole
// analysis.
func Interpret(raw []byte, kind record.DatabaseKind) (Finding, error) {
	if len(raw) == 0 {
		return Finding{}, nil
	}
	switch kind {
	case record.MySQL:
		return interpretMySQL(raw)
	case record.Postgres:
		return interpretPostgres(raw)
	default:
		return Finding{}, fmt.Errorf("%w %q", record.ErrUnsupportedKind, kind)
	}
}
