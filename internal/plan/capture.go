package plan

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"

	"github.com/sqltriage/sqltriage/internal/fingerprint"
	"github.com/sqltriage/sqltriage/internal/record"
)

const captureTimeout = 10 * time.Second

// Capture runs EXPLAIN against the target database for records whose
// collector did not ship a plan. Only statements that are safe to explain
// are sent; everything runs inside a transaction that is always rolled back.
func Capture(ctx context.Context, dsn string, kind record.DatabaseKind, query string) ([]byte, error) {
	if !fingerprint.IsSafeToExplain(query) {
		return nil, fmt.Errorf("statement is not safe to explain")
	}

	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	switch kind {
	case record.Postgres:
		return capturePostgres(ctx, dsn, query)
	case record.MySQL:
		return captureMySQL(ctx, dsn, query)
	default:
		return nil, fmt.Errorf("%w %q", record.ErrUnsupportedKind, kind)
	}
}

func capturePostgres(ctx context.Context, dsn string, query string) ([]byte, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var jsonStr string
	err = tx.QueryRow(ctx, "EXPLAIN (FORMAT JSON) "+query).Scan(&jsonStr)
	if err != nil {
		return nil, fmt.Errorf("executing EXPLAIN: %w", err)
	}
	return []byte(jsonStr), nil
}

func captureMySQL(ctx context.Context, dsn string, query string) ([]byte, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	var jsonStr string
	err = db.QueryRowContext(ctx, "EXPLAIN FORMAT=JSON "+query).Scan(&jsonStr)
	if err != nil {
		return nil, fmt.Errorf("executing EXPLAIN: %w", err)
	}
	return []byte(jsonStr), nil
}
