package database

import (
	"fmt"
	"os"
	"path/filepath"

	"metafix/internal/config"
	"metafix/internal/fixer"
)

// JournalFileName is the SQLite file inside the journal data directory.
const JournalFileName = "journal.db"

// NewJournalFromConfig creates the run journal selected by cfg.Type.
func NewJournalFromConfig(cfg config.JournalConfig) (fixer.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		return NewSQLiteJournal(filepath.Join(cfg.DataDir, JournalFileName))
	case "memory":
		return NewSQLiteJournal(":memory:")
	case "none", "":
		return fixer.NopJournal{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
