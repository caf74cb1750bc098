package record

import (
	"errors"
	"time"
)

// ErrUnsupportedKind is wrapped by every component that dispatches on
// DatabaseKind, so callers can branch with errors.Is.
var ErrUnsupportedKind = errors.New("unsupported database kind")

// DatabaseKind identifies the vendor a slow query was captured from.
type DatabaseKind string

const (
	MySQL    DatabaseKind = "mysql"
	Postgres DatabaseKind = "postgres"
)

func (k DatabaseKind) Valid() bool {
	return k == MySQL || k == Postgres
}

// Status tracks where a record sits in the analysis pipeline.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusAnalyzed Status = "ANALYZED"
	StatusError    Status = "ERROR"
)

// Metrics are the execution measurements captured alongside a slow query.
type Metrics struct {
	DurationMS   float64 `json:"duration_ms"`
	LockTimeMS   float64 `json:"lock_time_ms"`
	RowsExamined int64   `json:"rows_examined"`
	RowsReturned int64   `json:"rows_returned"`
}

// SlowQueryRecord is one captured slow query as supplied by a collector.
// This core only attaches the fingerprint and flips the status; records are
// never deleted here.
type SlowQueryRecord struct {
	SQL        string       `json:"sql"`
	Kind       DatabaseKind `json:"kind"`
	Metrics    Metrics      `json:"metrics"`
	PlanJSON   []byte       `json:"plan_json,omitempty"`
	CapturedAt time.Time    `json:"captured_at,omitempty"`

	Fingerprint string `json:"fingerprint,omitempty"`
	Hash        string `json:"hash,omitempty"`
	Status      Status `json:"status,omitempty"`
}
