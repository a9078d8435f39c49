package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ridepulse/ridepulse/internal/config"
	"github.com/ridepulse/ridepulse/internal/observability"
)

// SQLExecutor runs statements through database/sql with a hard row cap
// and a per-query timeout. The cap is enforced by wrapping the statement
// in an outer LIMIT of cap+1, so truncation is detected without counting
// the full result.
type SQLExecutor struct {
	db      *sql.DB
	rowCap  int
	timeout time.Duration
}

func NewSQLExecutor(db *sql.DB, cfg config.EngineConfig) *SQLExecutor {
	rowCap := cfg.RowCap
	if rowCap <= 0 {
		rowCap = 500
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SQLExecutor{db: db, rowCap: rowCap, timeout: timeout}
}

func (e *SQLExecutor) Execute(ctx context.Context, sqlText string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	wrapped := wrapWithLimit(sqlText, e.rowCap+1)
	started := time.Now()
	rows, err := e.db.QueryContext(ctx, wrapped)
	if err != nil {
		return Result{}, e.wrapError(ctx, sqlText, err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return Result{}, e.wrapError(ctx, sqlText, err)
	}
	dbTypes := make([]string, len(names))
	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			dbTypes[i] = ct.DatabaseTypeName()
		}
	}

	var collected [][]any
	for rows.Next() {
		values := make([]any, len(names))
		targets := make([]any, len(names))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return Result{}, e.wrapError(ctx, sqlText, err)
		}
		for i := range values {
			values[i] = normalizeValue(values[i])
		}
		collected = append(collected, values)
	}
	if err := rows.Err(); err != nil {
		return Result{}, e.wrapError(ctx, sqlText, err)
	}

	truncated := len(collected) > e.rowCap
	if truncated {
		collected = collected[:e.rowCap]
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		var sample any
		if len(collected) > 0 && i < len(collected[0]) {
			sample = collected[0][i]
		}
		columns[i] = Column{Name: name, Type: inferColumnType(dbTypes[i], sample)}
	}

	duration := time.Since(started)
	observability.ObserveQueryExecution(duration)
	return Result{
		Columns:      columns,
		Rows:         collected,
		ReturnedRows: len(collected),
		Truncated:    truncated,
		Duration:     duration,
	}, nil
}

// Probe binds and plans the statement without scanning any data.
func (e *SQLExecutor) Probe(ctx context.Context, sqlText string) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.db.QueryContext(ctx, wrapWithLimit(sqlText, 0))
	if err != nil {
		return e.wrapError(ctx, sqlText, err)
	}
	defer func() { _ = rows.Close() }()
	return rows.Err()
}

func (e *SQLExecutor) wrapError(ctx context.Context, sqlText string, err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	return &ExecutionError{SQL: sqlText, Timeout: timedOut, Err: err}
}

func wrapWithLimit(sqlText string, limit int) string {
	trimmed := strings.TrimRight(strings.TrimSpace(sqlText), ";")
	return fmt.Sprintf("SELECT * FROM (%s) AS bounded_query LIMIT %d", trimmed, limit)
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	default:
		return value
	}
}

func inferColumnType(dbType string, sample any) ColumnType {
	upper := strings.ToUpper(dbType)
	switch {
	case containsAny(upper, "INT", "DOUBLE", "FLOAT", "DECIMAL", "NUMERIC", "REAL"):
		return TypeNumber
	case containsAny(upper, "TIMESTAMP", "DATE", "TIME"):
		return TypeDatetime
	case upper != "":
		return TypeText
	}
	switch sample.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return TypeNumber
	case time.Time:
		return TypeDatetime
	default:
		return TypeText
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
