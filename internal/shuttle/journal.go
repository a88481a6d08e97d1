package shuttle

import (
	"database/sql"
	"time"
)

// Run is a recorded transfer run.
type Run struct {
	ID          int64
	Operation   string // "copy" or "move"
	Source      string
	Destination string
	Status      string // RunStatus string, empty while running
	Transferred int64
	Failed      int64
	TimedOut    int64
	StartedAt   time.Time
	FinishedAt  sql.NullTime
}

// RunItem is a single file recorded under a run.
type RunItem struct {
	ID          int64
	RunID       int64
	Name        string
	Source      string
	Destination string
	Size        int64
	Status      string // "transferred" or "failed"
	Error       string
	CreatedAt   time.Time
}

// Journal records transfer runs and their per-item outcomes.
type Journal interface {
	// CreateRun inserts a new run record and returns it with its ID set.
	CreateRun(operation, source, destination string, startedAt time.Time) (*Run, error)

	// FinishRun closes out a run with its final status and counts.
	FinishRun(id int64, status string, transferred, failed, timedOut int64, finishedAt time.Time) error

	// AddItem records one item under a run. item.RunID must be set.
	AddItem(item *RunItem) error

	// RecentRuns returns the most recent runs, newest first.
	RecentRuns(limit int) ([]*Run, error)

	// RunItems returns the items recorded under a run, oldest first.
	RunItems(runID int64) ([]*RunItem, error)

	Close() error
}
