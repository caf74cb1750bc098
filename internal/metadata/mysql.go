package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const describeTimeout = 10 * time.Second

type mysqlProvider struct {
	dsn string
}

const mysqlColumnsQuery = `
	SELECT TABLE_NAME, COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_KEY
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME IN (%s)
	ORDER BY TABLE_NAME, ORDINAL_POSITION`

const mysqlIndexesQuery = `
	SELECT TABLE_NAME, INDEX_NAME, COLUMN_NAME, NON_UNIQUE
	FROM INFORMATION_SCHEMA.STATISTICS
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME IN (%s)
	ORDER BY TABLE_NAME, INDEX_NAME, SEQ_IN_INDEX`

func (p *mysqlProvider) Describe(ctx context.Context, tables []string) (string, error) {
	if len(tables) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, describeTimeout)
	defer cancel()

	db, err := sql.Open("mysql", p.dsn)
	if err != nil {
		return "", fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tables)), ",")
	args := make([]any, len(tables))
	for i, t := range tables {
		args[i] = t
	}

	var b strings.Builder

	rows, err := db.QueryContext(ctx, fmt.Sprintf(mysqlColumnsQuery, placeholders), args...)
	if err != nil {
		return "", fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	current := ""
	for rows.Next() {
		var table, column, colType, nullable, key string
		if err := rows.Scan(&table, &column, &colType, &nullable, &key); err != nil {
			return "", fmt.Errorf("scanning column row: %w", err)
		}
		if table != current {
			fmt.Fprintf(&b, "Table %s:\n", table)
			current = table
		}
		fmt.Fprintf(&b, "  %s %s", column, colType)
		if key != "" {
			fmt.Fprintf(&b, " [%s]", key)
		}
		b.WriteString("\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading column rows: %w", err)
	}

	idxRows, err := db.QueryContext(ctx, fmt.Sprintf(mysqlIndexesQuery, placeholders), args...)
	if err != nil {
		return "", fmt.Errorf("querying indexes: %w", err)
	}
	defer idxRows.Close()

	b.WriteString("Indexes:\n")
	for idxRows.Next() {
		var table, index, column string
		var nonUnique int
		if err := idxRows.Scan(&table, &index, &column, &nonUnique); err != nil {
			return "", fmt.Errorf("scanning index row: %w", err)
		}
		unique := ""
		if nonUnique == 0 {
			unique = " UNIQUE"
		}
		fmt.Fprintf(&b, "  %s.%s(%s)%s\n", table, index, column, unique)
	}
	if err := idxRows.Err(); err != nil {
		return "", fmt.Errorf("reading index rows: %w", err)
	}

	return b.String(), nil
}
