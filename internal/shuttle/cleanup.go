package shuttle

import (
	"time"
)

// Defaults for the cleanup retry loop, used when the configuration leaves
// them unset.
const (
	DefaultRetryInterval = 500 * time.Millisecond
	DefaultLockTimeout   = 5 * time.Minute
)

// StagingRecord is a file awaiting safe deletion: a staged temp copy, or the
// original source after a move. The file may still be locked by the store
// that just consumed it, so deletion is retried in the background instead of
// blocking the transfer loop.
type StagingRecord struct {
	Location   Location
	EnqueuedAt time.Time
}

// Remover deletes the file a staging record points at. Removing a file that
// is already gone must succeed; a file still held open may fail, in which
// case the record is retried.
type Remover interface {
	Remove(loc Location) error
}

// CleanupStats is the final tally of a coordinator's work.
type CleanupStats struct {
	Deleted  int
	TimedOut int
}

// CleanupCoordinator deletes staging records in the background while the
// transfer loop keeps moving files. Records arrive over a channel; each pass
// attempts every pending deletion, requeues failures, and drops records
// older than the lock timeout with a single warning. Closing the intake is
// the termination signal: once it is closed and every record is deleted or
// timed out, the coordinator exits.
type CleanupCoordinator struct {
	remover  Remover
	logger   Logger
	clock    Clock
	interval time.Duration
	timeout  time.Duration

	intake chan StagingRecord
	done   chan struct{}
	stats  CleanupStats
}

// NewCleanupCoordinator creates a coordinator. interval is the pause between
// deletion passes and timeout is how long a record may stay pending; zero
// values fall back to the defaults.
func NewCleanupCoordinator(remover Remover, logger Logger, clock Clock, interval, timeout time.Duration) *CleanupCoordinator {
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &CleanupCoordinator{
		remover:  remover,
		logger:   logger,
		clock:    clock,
		interval: interval,
		timeout:  timeout,
		intake:   make(chan StagingRecord, 64),
		done:     make(chan struct{}),
	}
}

// Start launches the background worker. Call exactly once.
func (c *CleanupCoordinator) Start() {
	go c.run()
}

// Enqueue hands a file over for eventual deletion. Safe to call from the
// transfer loop while the worker is running; must not be called after Close.
func (c *CleanupCoordinator) Enqueue(loc Location) {
	c.intake <- StagingRecord{Location: loc, EnqueuedAt: c.clock.Now()}
}

// Close signals that no further records will arrive.
func (c *CleanupCoordinator) Close() {
	close(c.intake)
}

// Wait blocks until the worker has resolved every record, then returns the
// final stats. Call after Close.
func (c *CleanupCoordinator) Wait() CleanupStats {
	<-c.done
	return c.stats
}

// run owns the pending list. It blocks on the intake while idle, drains it
// without blocking while records are pending, and sleeps one interval
// between passes so a stubborn lock never turns into a busy spin.
func (c *CleanupCoordinator) run() {
	defer close(c.done)

	var pending []StagingRecord
	open := true

	for open || len(pending) > 0 {
		if open && len(pending) == 0 {
			rec, ok := <-c.intake
			if !ok {
				open = false
				continue
			}
			pending = append(pending, rec)
		}
		if open {
			open = c.drain(&pending)
		}

		pending = c.sweep(pending)

		if len(pending) > 0 {
			time.Sleep(c.interval)
		}
	}
}

// drain moves everything currently buffered in the intake onto the pending
// list without blocking. Returns false once the intake is closed.
func (c *CleanupCoordinator) drain(pending *[]StagingRecord) bool {
	for {
		select {
		case rec, ok := <-c.intake:
			if !ok {
				return false
			}
			*pending = append(*pending, rec)
		default:
			return true
		}
	}
}

// sweep attempts every pending deletion once and returns what is left.
func (c *CleanupCoordinator) sweep(pending []StagingRecord) []StagingRecord {
	now := c.clock.Now()
	remaining := pending[:0]

	for _, rec := range pending {
		err := c.remover.Remove(rec.Location)
		if err == nil {
			c.stats.Deleted++
			c.logger.Debug("cleanup deleted", "path", rec.Location.Path, "kind", rec.Location.Kind.String())
			continue
		}

		if now.Sub(rec.EnqueuedAt) >= c.timeout {
			c.stats.TimedOut++
			c.logger.Warn("cleanup timed out, leaving file behind",
				"path", rec.Location.Path,
				"kind", rec.Location.Kind.String(),
				"error", err)
			continue
		}

		remaining = append(remaining, rec)
	}

	return remaining
}
