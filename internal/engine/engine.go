package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ColumnType is the inferred type of a result column, used by the chart
// spec validator to check dtype hints.
type ColumnType string

const (
	TypeNumber   ColumnType = "number"
	TypeDatetime ColumnType = "datetime"
	TypeText     ColumnType = "text"
)

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Result holds the bounded output of one read-only query. ReturnedRows
// counts the rows kept after the row cap; Truncated is set when the cap
// cut the result short.
type Result struct {
	Columns      []Column
	Rows         [][]any
	ReturnedRows int
	Truncated    bool
	Duration     time.Duration
}

func (r Result) ColumnNames() []string {
	names := make([]string, 0, len(r.Columns))
	for _, col := range r.Columns {
		names = append(names, col.Name)
	}
	return names
}

// RowMaps renders up to limit rows as name-keyed maps for JSON payloads
// and prompt samples. limit <= 0 means all rows.
func (r Result) RowMaps(limit int) []map[string]any {
	if limit <= 0 || limit > len(r.Rows) {
		limit = len(r.Rows)
	}
	out := make([]map[string]any, 0, limit)
	for _, row := range r.Rows[:limit] {
		record := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				record[col.Name] = row[i]
			}
		}
		out = append(out, record)
	}
	return out
}

// Executor runs validated, read-only SQL against the columnar engine.
type Executor interface {
	Execute(ctx context.Context, sqlText string) (Result, error)
	// Probe runs the statement with a LIMIT 0 wrapper so the validator
	// can catch binder and syntax errors without scanning data.
	Probe(ctx context.Context, sqlText string) error
}

// ErrUnavailable marks the engine itself as unreachable; retrying a
// generation attempt cannot help, so callers short-circuit.
var ErrUnavailable = errors.New("query engine unavailable")

// ExecutionError wraps an engine rejection of a statement that had
// already passed static validation.
type ExecutionError struct {
	SQL     string
	Timeout bool
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("query timed out: %v", e.Err)
	}
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
