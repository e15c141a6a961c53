package fixer

import (
	"fmt"
	"path/filepath"
	"time"
)

// ParseManualTimestamp validates a "YYYY-MM-DD" date and "HH:MM:SS" time and
// renders them in the tool's wall-clock format.
func ParseManualTimestamp(date, clock string) (string, error) {
	t, err := time.Parse("2006-01-02 15:04:05", date+" "+clock)
	if err != nil {
		return "", fmt.Errorf("invalid date %q and time %q, expected YYYY-MM-DD HH:MM:SS: %w", date, clock, err)
	}
	return t.Format(ExifLayout), nil
}

// SetDate overwrites every date tag of a single media file with the given wall-clock time.
func (s *Service) SetDate(path, date, clock string) error {
	ts, err := ParseManualTimestamp(date, clock)
	if err != nil {
		return err
	}
	if !s.fsmgr.Exists(path) {
		return fmt.Errorf("file not found: %s", path)
	}

	name := filepath.Base(path)
	s.logger.Info(fmt.Sprintf("Setting all dates of %s to %s", name, ts), "path", path)
	if err := s.tool.Write(WriteRequest{Path: path, Timestamp: ts, AllDates: true}); err != nil {
		s.logger.Error(fmt.Sprintf("Failed to update %s: %v", name, err), "path", path)
		return fmt.Errorf("updating %s: %w", name, err)
	}
	s.logger.Success(fmt.Sprintf("✓ %s → %s", name, ts), "path", path)
	return nil
}
