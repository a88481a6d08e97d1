package testutil

import (
	"testing"

	"shuttle-go/internal/journal"
	"shuttle-go/internal/shuttle"
)

// NewTestJournal creates an in-memory SQLite journal with schema applied.
// The journal is automatically closed when the test completes.
func NewTestJournal(t *testing.T) shuttle.Journal {
	t.Helper()

	j, err := journal.NewSQLiteJournal(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}

	t.Cleanup(func() {
		j.Close()
	})

	return j
}
