package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Compile-time interface guards.
var (
	_ Sheet = (*SQLiteSheet)(nil)
	_ Sheet = (*MemorySheet)(nil)
)

// DB is the subset of the SQLite store the sheet needs.
type DB interface {
	DB() *sql.DB
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// SQLiteSheet keeps the generation log in the generation_log table.
// The caller is responsible for running Migrations via store.Migrate first.
type SQLiteSheet struct {
	db  DB
	now func() time.Time

	mu       sync.Mutex
	cached   *Table
	cachedAt time.Time
}

// NewSQLiteSheet creates a sheet backed by db.
func NewSQLiteSheet(db DB) *SQLiteSheet {
	return &SQLiteSheet{db: db, now: time.Now}
}

var columnList = strings.Join(Columns, ", ")

// Read implements Sheet.
func (s *SQLiteSheet) Read(ctx context.Context, ttl time.Duration) (Table, error) {
	s.mu.Lock()
	if ttl > 0 && s.cached != nil && s.now().Sub(s.cachedAt) < ttl {
		t := s.cached.Clone()
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	rows, err := s.db.DB().QueryContext(ctx,
		"SELECT "+columnList+" FROM generation_log ORDER BY id")
	if err != nil {
		return Table{}, fmt.Errorf("read generation log: %w", err)
	}
	defer rows.Close()

	t := NewTable()
	for rows.Next() {
		row := make([]string, len(Columns))
		dest := make([]any, len(row))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return Table{}, fmt.Errorf("scan generation log: %w", err)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("read generation log: %w", err)
	}

	s.remember(t)
	return t, nil
}

// Update implements Sheet. The whole table is rewritten in one transaction.
func (s *SQLiteSheet) Update(ctx context.Context, t Table) error {
	if err := t.checkSchema(); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(Columns)), ", ")
	err := s.db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM generation_log"); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO generation_log ("+columnList+") VALUES ("+placeholders+")")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, row := range t.Rows {
			args := make([]any, len(row))
			for i, v := range row {
				args[i] = v
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write generation log: %w", err)
	}

	s.remember(t)
	return nil
}

// Reset implements Sheet.
func (s *SQLiteSheet) Reset() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *SQLiteSheet) remember(t Table) {
	c := t.Clone()
	s.mu.Lock()
	s.cached = &c
	s.cachedAt = s.now()
	s.mu.Unlock()
}
