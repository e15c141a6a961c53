package database

import (
	"os"
	"path/filepath"
	"testing"

	"metafix/internal/config"
	"metafix/internal/fixer"
)

func TestNewJournalFromConfig(t *testing.T) {
	t.Run("memory journal", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.JournalConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		defer got.Close()
		if _, ok := got.(*SQLiteJournal); !ok {
			t.Errorf("NewJournalFromConfig() = %T, want *SQLiteJournal", got)
		}
	})

	t.Run("sqlite journal creates its directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "journal")
		got, err := NewJournalFromConfig(config.JournalConfig{Type: "sqlite", DataDir: dir})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		defer got.Close()
		if _, err := os.Stat(filepath.Join(dir, JournalFileName)); err != nil {
			t.Errorf("journal file not created: %v", err)
		}
	})

	t.Run("sqlite journal without data_dir", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.JournalConfig{Type: "sqlite"})
		if err == nil {
			t.Error("NewJournalFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewJournalFromConfig() should return nil on error")
		}
	})

	t.Run("none", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.JournalConfig{Type: "none"})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		if _, ok := got.(fixer.NopJournal); !ok {
			t.Errorf("NewJournalFromConfig() = %T, want NopJournal", got)
		}
	})

	t.Run("unknown journal type", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.JournalConfig{Type: "postgres"})
		if err == nil {
			t.Error("NewJournalFromConfig() expected error for unknown type, got nil")
		}
		if got != nil {
			t.Error("NewJournalFromConfig() should return nil on error")
		}
	})
}
