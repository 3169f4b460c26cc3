// Package testutil provides shared fixtures for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/HerbHall/narracode/internal/store"
	"github.com/HerbHall/narracode/internal/tasks"
)

// NewDefinition returns a minimal valid coding task with no examples.
// Override individual fields with options as needed.
func NewDefinition(opts ...func(*tasks.Definition)) tasks.Definition {
	d := tasks.Definition{
		Name:           "Bare",
		TaskDefinition: "Score chronology from 0 to 3.",
		InputFormat:    "A narrative.",
		OutputFormat:   "A single integer.",
		Codes:          []tasks.CodeStyle{{Code: "_0_", Markup: "0"}},
		Legend:         "0-3",
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithCorrectExamples sets the public correct examples.
func WithCorrectExamples(examples ...tasks.Example) func(*tasks.Definition) {
	return func(d *tasks.Definition) { d.CorrectExamples = examples }
}

// WithIncorrectExamples sets the public incorrect examples.
func WithIncorrectExamples(examples ...tasks.Example) func(*tasks.Definition) {
	return func(d *tasks.Definition) { d.IncorrectExamples = examples }
}

// WithPrivateRefs sets the private example references.
func WithPrivateRefs(correct, incorrect string) func(*tasks.Definition) {
	return func(d *tasks.Definition) {
		d.PrivateCorrectRef = correct
		d.PrivateIncorrectRef = incorrect
	}
}

// NewStore opens a database in a temporary directory and applies the given
// component migrations. The store is closed when the test ends.
func NewStore(t *testing.T, component string, migrations []store.Migration) *store.Store {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Migrate(context.Background(), component, migrations); err != nil {
		t.Fatalf("Migrate(%s): %v", component, err)
	}
	return db
}
