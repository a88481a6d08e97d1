package journal

import (
	"database/sql"
	"fmt"
	"time"

	"shuttle-go/internal/journal/migrations"
	"shuttle-go/internal/shuttle"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal implements the Journal interface using SQLite.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal opens (or creates) the journal database at path and
// brings its schema up to date. path can be a file path or ":memory:".
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal schema: %w", err)
	}

	return &SQLiteJournal{
		db:   db,
		path: path,
	}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured
// SQLite connection. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

func (j *SQLiteJournal) CreateRun(operation, source, destination string, startedAt time.Time) (*shuttle.Run, error) {
	res, err := j.db.Exec(
		`INSERT INTO transfer_runs (operation, source, destination, status, started_at)
		 VALUES (?, ?, ?, 'running', ?)`,
		operation, source, destination, startedAt)
	if err != nil {
		return nil, fmt.Errorf("creating transfer run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting transfer run ID: %w", err)
	}

	return &shuttle.Run{
		ID:          id,
		Operation:   operation,
		Source:      source,
		Destination: destination,
		Status:      "running",
		StartedAt:   startedAt,
	}, nil
}

func (j *SQLiteJournal) FinishRun(id int64, status string, transferred, failed, timedOut int64, finishedAt time.Time) error {
	_, err := j.db.Exec(
		`UPDATE transfer_runs
		 SET status = ?, transferred = ?, failed = ?, timed_out = ?, finished_at = ?
		 WHERE id = ?`,
		status, transferred, failed, timedOut, finishedAt, id)
	if err != nil {
		return fmt.Errorf("finishing transfer run: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) AddItem(item *shuttle.RunItem) error {
	res, err := j.db.Exec(
		`INSERT INTO transfer_items (run_id, name, source, destination, size, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RunID, item.Name, item.Source, item.Destination, item.Size, item.Status, item.Error, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording transfer item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting transfer item ID: %w", err)
	}
	item.ID = id
	return nil
}

func (j *SQLiteJournal) RecentRuns(limit int) ([]*shuttle.Run, error) {
	rows, err := j.db.Query(
		`SELECT id, operation, source, destination, status, transferred, failed, timed_out, started_at, finished_at
		 FROM transfer_runs
		 ORDER BY id DESC
		 LIMIT ?`,
		int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing transfer runs: %w", err)
	}
	defer rows.Close()

	var runs []*shuttle.Run
	for rows.Next() {
		run := &shuttle.Run{}
		err := rows.Scan(&run.ID, &run.Operation, &run.Source, &run.Destination, &run.Status,
			&run.Transferred, &run.Failed, &run.TimedOut, &run.StartedAt, &run.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing transfer runs: %w", err)
	}
	return runs, nil
}

func (j *SQLiteJournal) RunItems(runID int64) ([]*shuttle.RunItem, error) {
	rows, err := j.db.Query(
		`SELECT id, run_id, name, source, destination, size, status, error, created_at
		 FROM transfer_items
		 WHERE run_id = ?
		 ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("listing transfer items: %w", err)
	}
	defer rows.Close()

	var items []*shuttle.RunItem
	for rows.Next() {
		item := &shuttle.RunItem{}
		err := rows.Scan(&item.ID, &item.RunID, &item.Name, &item.Source, &item.Destination,
			&item.Size, &item.Status, &item.Error, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing transfer items: %w", err)
	}
	return items, nil
}

// Path returns the journal file path (or ":memory:" for in-memory journals).
func (j *SQLiteJournal) Path() string {
	return j.path
}

// CheckSchema verifies the journal schema is up-to-date.
func (j *SQLiteJournal) CheckSchema() error {
	return migrations.CheckSchemaStatus(j.db)
}

// Close closes the journal connection.
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteJournal implements the Journal interface
var _ shuttle.Journal = (*SQLiteJournal)(nil)
