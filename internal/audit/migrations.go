package audit

import (
	"context"
	"database/sql"

	"github.com/HerbHall/narracode/internal/store"
)

// Component is the migration namespace of the audit tables.
const Component = "audit"

// Migrations returns the schema migrations of the generation log.
func Migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create generation log table",
			Up: func(ctx context.Context, tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS generation_log (
						id                INTEGER PRIMARY KEY AUTOINCREMENT,
						timestamp         TEXT NOT NULL,
						user              TEXT NOT NULL DEFAULT '',
						service           TEXT NOT NULL DEFAULT '',
						base_model        TEXT NOT NULL DEFAULT '',
						coding_task       TEXT NOT NULL DEFAULT '',
						input             TEXT NOT NULL DEFAULT '[]',
						generation_params TEXT NOT NULL DEFAULT '{}',
						output            TEXT NOT NULL DEFAULT '',
						task              TEXT NOT NULL DEFAULT ''
					)`,
					`CREATE INDEX IF NOT EXISTS idx_generation_log_user ON generation_log(user)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.ExecContext(ctx, stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
