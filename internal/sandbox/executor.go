package sandbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"

	"github.com/sqltriage/sqltriage/internal/record"
)

// DefaultQueryTimeout bounds each sandboxed execution, independent of the AI
// provider timeout.
const DefaultQueryTimeout = 10 * time.Second

// Request is one AI-issued query candidate with its stated purpose.
type Request struct {
	SQL    string
	Reason string
}

// Result is the outcome of one sandboxed execution. Driver and guard errors
// are captured in Err rather than raised, so a single bad request never
// aborts the surrounding orchestration.
type Result struct {
	SQL      string     `json:"sql"`
	Columns  []string   `json:"columns,omitempty"`
	Rows     [][]string `json:"rows,omitempty"`
	RowCount int        `json:"row_count"`
	Err      string     `json:"error,omitempty"`
}

// Executor runs read-only statements against the target database using a
// least-privilege, monitoring-scoped credential supplied by the caller.
type Executor interface {
	Run(ctx context.Context, req Request) Result
}

// New returns an executor for the given vendor kind ("mysql" or "postgres").
func New(kind, dsn string) (Executor, error) {
	switch kind {
	case "postgres":
		return &postgresExecutor{dsn: dsn, timeout: DefaultQueryTimeout}, nil
	case "mysql":
		return &mysqlExecutor{dsn: dsn, timeout: DefaultQueryTimeout}, nil
	default:
		return nil, fmt.Errorf("%w %q", record.ErrUnsupportedKind, kind)
	}
}

type postgresExecutor struct {
	dsn     string
	timeout time.Duration
}

func (e *postgresExecutor) Run(ctx context.Context, req Request) Result {
	res := Result{SQL: req.SQL}
	if err := Guard(req.SQL); err != nil {
		res.Err = err.Error()
		return res
	}
	query := EnsureLimit(req.SQL, DefaultRowLimit)
	res.SQL = query

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, e.dsn)
	if err != nil {
		res.Err = fmt.Sprintf("connecting to database: %v", err)
		return res
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, query)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	defer rows.Close()

	for _, fd := range rows.FieldDescriptions() {
		res.Columns = append(res.Columns, string(fd.Name))
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			res.Err = err.Error()
			return res
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = renderValue(v)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		res.Err = err.Error()
		return res
	}
	res.RowCount = len(res.Rows)
	return res
}

type mysqlExecutor struct {
	dsn     string
	timeout time.Duration
}

func (e *mysqlExecutor) Run(ctx context.Context, req Request) Result {
	res := Result{SQL: req.SQL}
	if err := Guard(req.SQL); err != nil {
		res.Err = err.Error()
		return res
	}
	query := EnsureLimit(req.SQL, DefaultRowLimit)
	res.SQL = query

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	db, err := sql.Open("mysql", e.dsn)
	if err != nil {
		res.Err = fmt.Sprintf("connecting to database: %v", err)
		return res
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.Columns = cols

	for rows.Next() {
		raw := make([]sql.RawBytes, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			res.Err = err.Error()
			return res
		}
		row := make([]string, len(cols))
		for i, b := range raw {
			if b == nil {
				row[i] = "NULL"
			} else {
				row[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		res.Err = err.Error()
		return res
	}
	res.RowCount = len(res.Rows)
	return res
}

func renderValue(v any) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}
