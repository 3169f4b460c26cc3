// Package store provides the SQLite database that holds narracode's durable
// state. Components own their tables and create them through Migrate under
// their own component name.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

var (
	// ErrNewerSchema is returned when the database was last opened by a newer
	// version of narracode than the running binary.
	ErrNewerSchema = errors.New("database was created by a newer version of narracode")

	// ErrMigrationOrder is returned for a migration list whose versions are
	// not positive and strictly ascending.
	ErrMigrationOrder = errors.New("migration versions must be positive and strictly ascending")
)

// Migration is one schema change of a component. Up runs in the same
// transaction that records the migration as applied.
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
}

// pragmas are set on every connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

var bootstrap = []string{
	`CREATE TABLE IF NOT EXISTS _migrations (
		component   TEXT     NOT NULL,
		version     INTEGER  NOT NULL,
		description TEXT     NOT NULL,
		applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (component, version)
	)`,
	`CREATE TABLE IF NOT EXISTS _schema_meta (
		id          INTEGER  PRIMARY KEY CHECK (id = 1),
		app_version TEXT     NOT NULL,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Store is a SQLite database opened through modernc.org/sqlite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes Migrate
}

// Open opens or creates the database at path and prepares the bookkeeping
// tables.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One connection: writers never contend inside the process.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	for _, stmt := range bootstrap {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare sqlite %q: %w", path, err)
		}
	}
	return &Store{db: db}, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// DB returns the underlying handle for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx runs fn in a transaction, committing when fn returns nil.
func (s *Store) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Migrate applies the migrations of component that are not yet recorded
// and reports how many it applied. Each migration commits on its own, so a
// failure keeps the ones before it.
func (s *Store) Migrate(ctx context.Context, component string, migrations []Migration) (int, error) {
	for i, m := range migrations {
		if m.Version < 1 || (i > 0 && m.Version <= migrations[i-1].Version) {
			return 0, fmt.Errorf("%s: %w", component, ErrMigrationOrder)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	done, err := s.appliedVersions(ctx, component)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		err := s.Tx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(ctx, tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO _migrations (component, version, description) VALUES (?, ?, ?)",
				component, m.Version, m.Description)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("migrate %s to version %d (%s): %w", component, m.Version, m.Description, err)
		}
		applied++
	}
	return applied, nil
}

func (s *Store) appliedVersions(ctx context.Context, component string) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM _migrations WHERE component = ?", component)
	if err != nil {
		return nil, fmt.Errorf("list %s migrations: %w", component, err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("list %s migrations: %w", component, err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

// CheckVersion refuses a database last opened by a newer binary and
// otherwise records current as the database's version. The version "dev"
// is compatible with everything.
func (s *Store) CheckVersion(ctx context.Context, current string) error {
	var stored string
	err := s.db.QueryRowContext(ctx, "SELECT app_version FROM _schema_meta WHERE id = 1").Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case olderThan(current, stored):
		return fmt.Errorf("%w: database=%s, binary=%s", ErrNewerSchema, stored, current)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO _schema_meta (id, app_version) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET app_version = excluded.app_version, updated_at = CURRENT_TIMESTAMP`,
		current)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// olderThan reports whether version a precedes b.
func olderThan(a, b string) bool {
	if a == "dev" || b == "dev" {
		return false
	}
	return semver.Compare(canonical(a), canonical(b)) < 0
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
