package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"shuttle-go/internal/config"
	"shuttle-go/internal/shuttle"
)

// NewJournalFromConfig creates a Journal implementation based on the journal config type.
func NewJournalFromConfig(cfg config.JournalConfig) (shuttle.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating journal data directory: %w", err)
		}
		return NewSQLiteJournal(filepath.Join(cfg.DataDir, "journal.db"))
	case "memory":
		return NewSQLiteJournal(":memory:")
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
