// Package metadata fetches compact schema excerpts (columns, indexes,
// approximate row counts) used to enrich AI prompts. Absence of metadata
// never blocks rule-based analysis.
package metadata

import (
	"context"
	"fmt"

	"github.com/sqltriage/sqltriage/internal/record"
)

// Provider describes tables referenced by a slow query. Implementations use
// the same read-only credential as the sandbox.
type Provider interface {
	Describe(ctx context.Context, tables []string) (string, error)
}

// New returns a metadata provider for the given vendor kind.
func New(kind record.DatabaseKind, dsn string) (Provider, error) {
	switch kind {
	case record.MySQL:
		return &mysqlProvider{dsn: dsn}, nil
	case record.Postgres:
		return &postgresProvider{dsn: dsn}, nil
	default:
		return nil, fmt.Errorf("%w %q", record.ErrUnsupportedKind, kind)
	}
}
