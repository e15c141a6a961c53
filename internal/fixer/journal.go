package fixer

import (
	"database/sql"
	"time"
)

// Run statuses stored in the journal.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// RunRecord is one reconciliation run as stored in the journal.
type RunRecord struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     sql.NullTime
	SourceDir      string
	TimezoneMode   string
	Status         string
	Total          int
	Updated        int
	Errors         int
	SkippedNoMedia int
}

// OutcomeRecord is one per-sidecar result as stored in the journal.
type OutcomeRecord struct {
	RunID       string
	SidecarPath string
	MediaPath   string
	Outcome     string
	Detail      string
	RecordedAt  time.Time
}

// Journal persists run history. Journal failures never fail a run.
type Journal interface {
	StartRun(run *RunRecord) error
	RecordOutcome(rec *OutcomeRecord) error
	FinishRun(runID, status string, summary RunSummary, finishedAt time.Time) error
	// ListRuns returns the most recent runs first.
	ListRuns(limit int) ([]*RunRecord, error)
	ListOutcomes(runID string) ([]*OutcomeRecord, error)
	Close() error
}

// NopJournal discards everything.
type NopJournal struct{}

var _ Journal = NopJournal{}

func (NopJournal) StartRun(*RunRecord) error                             { return nil }
func (NopJournal) RecordOutcome(*OutcomeRecord) error                    { return nil }
func (NopJournal) FinishRun(string, string, RunSummary, time.Time) error { return nil }
func (NopJournal) ListRuns(int) ([]*RunRecord, error)                    { return nil, nil }
func (NopJournal) ListOutcomes(string) ([]*OutcomeRecord, error)         { return nil, nil }
func (NopJournal) Close() error                                          { return nil }
