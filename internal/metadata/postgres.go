package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

type postgresProvider struct {
	dsn string
}

const pgColumnsQuery = `
	SELECT table_name, column_name, data_type, is_nullable
	FROM information_schema.columns
	WHERE table_schema = 'public' AND table_name = ANY($1)
	ORDER BY table_name, ordinal_position`

const pgIndexesQuery = `
	SELECT tablename, indexname, indexdef
	FROM pg_indexes
	WHERE schemaname = 'public' AND tablename = ANY($1)
	ORDER BY tablename, indexname`

const pgRowEstimateQuery = `
	SELECT relname, reltuples::bigint
	FROM pg_class
	WHERE relname = ANY($1)`

func (p *postgresProvider) Describe(ctx context.Context, tables []string) (string, error) {
	if len(tables) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, describeTimeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return "", fmt.Errorf("connecting to database: %w", err)
	}
	defer conn.Close(ctx)

	var b strings.Builder

	rows, err := conn.Query(ctx, pgColumnsQuery, tables)
	if err != nil {
		return "", fmt.Errorf("querying columns: %w", err)
	}
	current := ""
	for rows.Next() {
		var table, column, dataType, nullable string
		if err := rows.Scan(&table, &column, &dataType, &nullable); err != nil {
			rows.Close()
			return "", fmt.Errorf("scanning column row: %w", err)
		}
		if table != current {
			fmt.Fprintf(&b, "Table %s:\n", table)
			current = table
		}
		fmt.Fprintf(&b, "  %s %s\n", column, dataType)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading column rows: %w", err)
	}

	idxRows, err := conn.Query(ctx, pgIndexesQuery, tables)
	if err != nil {
		return "", fmt.Errorf("querying indexes: %w", err)
	}
	b.WriteString("Indexes:\n")
	for idxRows.Next() {
		var table, index, def string
		if err := idxRows.Scan(&table, &index, &def); err != nil {
			idxRows.Close()
			return "", fmt.Errorf("scanning index row: %w", err)
		}
		fmt.Fprintf(&b, "  %s\n", def)
	}
	idxRows.Close()
	if err := idxRows.Err(); err != nil {
		return "", fmt.Errorf("reading index rows: %w", err)
	}

	estRows, err := conn.Query(ctx, pgRowEstimateQuery, tables)
	if err != nil {
		return "", fmt.Errorf("querying row estimates: %w", err)
	}
	b.WriteString("Approximate rows:\n")
	for estRows.Next() {
		var table string
		var estimate int64
		if err := estRows.Scan(&table, &estimate); err != nil {
			estRows.Close()
			return "", fmt.Errorf("scanning estimate row: %w", err)
		}
		fmt.Fprintf(&b, "  %s: %d\n", table, estimate)
	}
	estRows.Close()
	if err := estRows.Err(); err != nil {
		return "", fmt.Errorf("reading estimate rows: %w", err)
	}

	return b.String(), nil
}
