package testutil

import (
	"database/sql"
	"sync"
	"time"

	"shuttle-go/internal/shuttle"
)

// RecordingJournal is an in-memory Journal that keeps everything written to
// it, so tests can assert on run and item records without a database.
type RecordingJournal struct {
	mu     sync.Mutex
	nextID int64
	Runs   []*shuttle.Run
	Items  []*shuttle.RunItem
}

// NewRecordingJournal creates an empty RecordingJournal.
func NewRecordingJournal() *RecordingJournal {
	return &RecordingJournal{}
}

func (j *RecordingJournal) CreateRun(operation, source, destination string, startedAt time.Time) (*shuttle.Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.nextID++
	run := &shuttle.Run{
		ID:          j.nextID,
		Operation:   operation,
		Source:      source,
		Destination: destination,
		Status:      "running",
		StartedAt:   startedAt,
	}
	j.Runs = append(j.Runs, run)
	return run, nil
}

func (j *RecordingJournal) FinishRun(id int64, status string, transferred, failed, timedOut int64, finishedAt time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, run := range j.Runs {
		if run.ID == id {
			run.Status = status
			run.Transferred = transferred
			run.Failed = failed
			run.TimedOut = timedOut
			run.FinishedAt = sql.NullTime{Time: finishedAt, Valid: true}
			return nil
		}
	}
	return nil
}

func (j *RecordingJournal) AddItem(item *shuttle.RunItem) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.nextID++
	copied := *item
	copied.ID = j.nextID
	j.Items = append(j.Items, &copied)
	return nil
}

func (j *RecordingJournal) RecentRuns(limit int) ([]*shuttle.Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var runs []*shuttle.Run
	for i := len(j.Runs) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, j.Runs[i])
	}
	return runs, nil
}

func (j *RecordingJournal) RunItems(runID int64) ([]*shuttle.RunItem, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var items []*shuttle.RunItem
	for _, item := range j.Items {
		if item.RunID == runID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (j *RecordingJournal) Close() error { return nil }

// Run returns the recorded run with the given ID, or nil.
func (j *RecordingJournal) Run(id int64) *shuttle.Run {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, run := range j.Runs {
		if run.ID == id {
			return run
		}
	}
	return nil
}

// Compile-time check against the shuttle interface
var _ shuttle.Journal = (*RecordingJournal)(nil)
