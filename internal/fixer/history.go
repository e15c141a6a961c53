package fixer

import "fmt"

// History returns the most recent runs, newest first.
func (s *Service) History(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	runs, err := s.journal.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// RunOutcomes returns the per-sidecar outcomes recorded for one run.
func (s *Service) RunOutcomes(runID string) ([]*OutcomeRecord, error) {
	outcomes, err := s.journal.ListOutcomes(runID)
	if err != nil {
		return nil, fmt.Errorf("listing outcomes for run %s: %w", runID, err)
	}
	return outcomes, nil
}
