package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DefaultChunk is the row count per INSERT statement.
const DefaultChunk = 2000

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// BulkInsert writes rows as multi-row VALUES statements of at most chunk rows.
// Every row must have one value per column.
func BulkInsert(ctx context.Context, db Execer, table string, columns []string, rows [][]any, chunk int) error {
	if len(rows) == 0 {
		return nil
	}
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	head := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		tuples := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*len(columns))
		for i, row := range rows[start:end] {
			if len(row) != len(columns) {
				return fmt.Errorf("insert %s: row %d has %d values, want %d", table, start+i, len(row), len(columns))
			}
			tuples = append(tuples, tuple)
			args = append(args, row...)
		}
		if _, err := db.ExecContext(ctx, head+strings.Join(tuples, ","), args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}
