package audit

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Table is a snapshot of the generation log.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable returns an empty table with the generation log schema.
func NewTable() Table {
	return Table{Columns: slices.Clone(Columns)}
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := Table{Columns: slices.Clone(t.Columns), Rows: make([][]string, len(t.Rows))}
	for i, r := range t.Rows {
		out.Rows[i] = slices.Clone(r)
	}
	return out
}

// checkSchema verifies t carries exactly the generation log columns and
// that every row is complete.
func (t Table) checkSchema() error {
	if !slices.Equal(t.Columns, Columns) {
		return fmt.Errorf("table columns %v do not match the generation log schema", t.Columns)
	}
	for i, r := range t.Rows {
		if len(r) != len(Columns) {
			return fmt.Errorf("row %d has %d fields, want %d", i, len(r), len(Columns))
		}
	}
	return nil
}

// Sheet is the shared store behind the generation log. It offers whole-table
// reads and writes only, like the spreadsheet connection it stands in for.
type Sheet interface {
	// Read returns the table. A cached view younger than ttl may be
	// returned; ttl 0 always reads through to the store.
	Read(ctx context.Context, ttl time.Duration) (Table, error)

	// Update replaces the whole table.
	Update(ctx context.Context, t Table) error

	// Reset invalidates any cached view.
	Reset()
}

// MemorySheet is an in-process Sheet. It is safe for concurrent use, but a
// Read followed by an Update is still not atomic.
type MemorySheet struct {
	mu    sync.Mutex
	table Table
}

// NewMemorySheet returns an empty in-memory sheet.
func NewMemorySheet() *MemorySheet {
	return &MemorySheet{table: NewTable()}
}

// Read implements Sheet.
func (m *MemorySheet) Read(ctx context.Context, _ time.Duration) (Table, error) {
	if err := ctx.Err(); err != nil {
		return Table{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Clone(), nil
}

// Update implements Sheet.
func (m *MemorySheet) Update(ctx context.Context, t Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.checkSchema(); err != nil {
		return err
	}
	m.mu.Lock()
	m.table = t.Clone()
	m.mu.Unlock()
	return nil
}

// Reset implements Sheet.
func (m *MemorySheet) Reset() {}
