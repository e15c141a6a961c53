package fixer

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Settings are the tunable parts of a reconciliation run.
type Settings struct {
	Media            *MediaTypes
	DuplicateMarkers []string
	Folders          OutputFolders
}

// DefaultSettings returns the built-in media types, markers and folder names.
func DefaultSettings() Settings {
	return Settings{
		Media:            DefaultMediaTypes(),
		DuplicateMarkers: DefaultDuplicateMarkers,
		Folders:          DefaultOutputFolders(),
	}
}

// Service is the orchestration layer behind the CLI. It drives one strictly
// sequential pass over the sidecars of a tree, then reorganizes the tree.
type Service struct {
	fsmgr    FilesystemManager
	tool     MetadataTool
	journal  Journal
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	settings Settings

	scanner   *SidecarScanner
	matcher   *MediaMatcher
	renamer   *RenameReconciler
	organizer *TreeOrganizer
}

// NewService creates a Service with the provided dependencies.
// tool may be nil for read-only use (Preview, History).
func NewService(fsmgr FilesystemManager, tool MetadataTool, journal Journal, logger Logger, clock Clock, idgen IDGenerator, settings Settings) *Service {
	if journal == nil {
		journal = NopJournal{}
	}
	return &Service{
		fsmgr:     fsmgr,
		tool:      tool,
		journal:   journal,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		settings:  settings,
		scanner:   NewSidecarScanner(fsmgr, settings.Folders),
		matcher:   NewMediaMatcher(fsmgr, settings.Media, settings.DuplicateMarkers),
		renamer:   NewRenameReconciler(fsmgr, tool, settings.Media, logger),
		organizer: NewTreeOrganizer(fsmgr, settings.Media, settings.Folders, logger, clock),
	}
}

// Run reconciles every sidecar under root and then moves orphaned media and
// processed sidecars into the output folders. Per-sidecar failures become
// outcomes in the summary. The returned error is non-nil only when the root
// cannot be read or the metadata tool disappears mid-run; in the latter case
// the tree is not reorganized.
func (s *Service) Run(root string, mode TimezoneMode) (RunSummary, error) {
	records, err := s.scanner.Scan(root)
	if err != nil {
		return RunSummary{}, err
	}

	runID := s.idgen.New()
	run := &RunRecord{
		ID:           runID,
		StartedAt:    s.clock.Now(),
		SourceDir:    root,
		TimezoneMode: string(mode),
		Status:       RunStatusRunning,
	}
	if err := s.journal.StartRun(run); err != nil {
		s.logger.Warn(fmt.Sprintf("Run history unavailable: %v", err))
	}

	summary := NewRunSummary(len(records))
	if len(records) == 0 {
		s.logger.Error(fmt.Sprintf("No sidecar JSON files found in %s", root))
		s.finish(runID, RunStatusSuccess, summary)
		return summary, nil
	}

	s.logger.Info(fmt.Sprintf("Found %d sidecar files to process", len(records)), "root", root)
	s.logger.Info(fmt.Sprintf("Timezone mode: %s", mode.Label()))

	handled := make(map[string]bool)
	for i, rec := range records {
		s.logger.Debug(fmt.Sprintf("[%d/%d] %s", i+1, len(records), s.relative(root, rec.Path)))

		original := rec.Path
		res := s.process(rec, mode, handled)
		summary = summary.Record(res.Outcome)
		handled[original] = true
		handled[res.SidecarPath] = true
		s.recordOutcome(runID, res)

		if errors.Is(res.Err, ErrToolNotFound) {
			s.logger.Error("The metadata tool is no longer available; stopping without reorganizing the tree")
			s.finish(runID, RunStatusError, summary)
			return summary, fmt.Errorf("processing stopped: %w", res.Err)
		}
	}

	s.organize(root)
	s.logSummary(summary)
	s.finish(runID, RunStatusSuccess, summary)
	return summary, nil
}

// process walks one sidecar through parse, timestamp, match, rename and write.
// It never returns early without an outcome.
func (s *Service) process(rec *SidecarRecord, mode TimezoneMode, handled map[string]bool) ItemResult {
	name := filepath.Base(rec.Path)
	res := ItemResult{SidecarPath: rec.Path}

	if handled[rec.Path] || !s.fsmgr.Exists(rec.Path) {
		s.logger.Debug(fmt.Sprintf("Skipping %s, already handled", name), "path", rec.Path)
		res.Outcome = OutcomeSkippedAlreadyHandled
		return res
	}

	data, err := s.fsmgr.ReadFile(rec.Path)
	if err != nil {
		return s.fail(res, OutcomeErrorDecodingSidecar, &SidecarDecodeError{Path: rec.Path, Err: err},
			fmt.Sprintf("Could not read %s", name))
	}
	payload, err := DecodeSidecar(data)
	if errors.Is(err, ErrMissingTimestamp) {
		s.logger.Warn(fmt.Sprintf("No timestamp in %s, skipping", name), "path", rec.Path)
		res.Outcome = OutcomeSkippedNoTimestamp
		res.Err = err
		return res
	}
	if err != nil {
		var de *SidecarDecodeError
		if errors.As(err, &de) {
			de.Path = rec.Path
		}
		return s.fail(res, OutcomeErrorDecodingSidecar, err, fmt.Sprintf("Could not parse %s", name))
	}

	ts, err := ResolveTimestamp(payload.CapturedAt, mode)
	if err != nil {
		return s.fail(res, OutcomeErrorInvalidTimestamp, err, fmt.Sprintf("Bad timestamp in %s", name))
	}

	media, ok := s.matcher.Match(rec)
	if !ok {
		s.logger.Warn(fmt.Sprintf("No media file found for %s", name), "path", rec.Path)
		res.Outcome = OutcomeSkippedNoMedia
		res.Err = ErrNoMediaFound
		return res
	}
	s.logger.Debug(fmt.Sprintf("Matched %s to %s", name, filepath.Base(media.Path)), "strategy", media.Strategy.String())
	res.MediaPath = media.Path

	rename := s.renamer.Reconcile(rec, media)
	switch rename.State {
	case RenameConflict:
		return s.fail(res, OutcomeErrorRenameConflict, rename.Err, fmt.Sprintf("Cannot rename %s", filepath.Base(media.Path)))
	case RenamePartial:
		res.MediaPath = rename.MediaPath
		return s.fail(res, OutcomeErrorRenamePartial, rename.Err, fmt.Sprintf("Renamed %s but not its sidecar", filepath.Base(rename.MediaPath)))
	case RenameApplied:
		rec.Path = rename.SidecarPath
		media.Path = rename.MediaPath
		res.SidecarPath = rename.SidecarPath
		res.MediaPath = rename.MediaPath
		handled[rename.SidecarPath] = true
	}

	req := WriteRequest{
		Path:        media.Path,
		Timestamp:   ts,
		Video:       s.settings.Media.IsVideo(media.Path),
		Description: payload.Description,
	}
	if c, ok := payload.Coordinates(); ok {
		req.GPS = c
	}
	if err := s.tool.Write(req); err != nil {
		return s.fail(res, OutcomeErrorWritingMetadata, err, fmt.Sprintf("Failed to update %s", filepath.Base(media.Path)))
	}

	s.logger.Success(fmt.Sprintf("✓ %s → %s (%s)", filepath.Base(media.Path), ts, mode.Label()), "path", media.Path)
	res.Outcome = OutcomeUpdated
	return res
}

func (s *Service) fail(res ItemResult, outcome Outcome, err error, msg string) ItemResult {
	s.logger.Error(fmt.Sprintf("%s: %v", msg, err), "path", res.SidecarPath, "outcome", outcome.String())
	res.Outcome = outcome
	res.Err = err
	res.Detail = err.Error()
	return res
}

func (s *Service) organize(root string) {
	if _, err := s.organizer.QuarantineOrphans(root); err != nil {
		s.logger.Error(fmt.Sprintf("Could not quarantine media without metadata: %v", err))
	}
	if _, err := s.organizer.ArchiveSidecars(root); err != nil {
		s.logger.Error(fmt.Sprintf("Could not archive sidecar files: %v", err))
	}
}

func (s *Service) logSummary(summary RunSummary) {
	s.logger.Info("Processing complete")
	s.logger.Info(fmt.Sprintf("Sidecar files found: %d", summary.Discovered))
	s.logger.Success(fmt.Sprintf("Media files updated: %d", summary.Updated()))
	if n := summary.SkippedNoMedia(); n > 0 {
		s.logger.Warn(fmt.Sprintf("Sidecars without media: %d", n))
	}
	if n := summary.Count(OutcomeSkippedNoTimestamp); n > 0 {
		s.logger.Warn(fmt.Sprintf("Sidecars without timestamp: %d", n))
	}
	if n := summary.Errors(); n > 0 {
		s.logger.Error(fmt.Sprintf("Errors: %d", n))
	} else {
		s.logger.Info("Errors: 0")
	}
}

func (s *Service) recordOutcome(runID string, res ItemResult) {
	rec := &OutcomeRecord{
		RunID:       runID,
		SidecarPath: res.SidecarPath,
		MediaPath:   res.MediaPath,
		Outcome:     res.Outcome.String(),
		Detail:      res.Detail,
		RecordedAt:  s.clock.Now(),
	}
	if err := s.journal.RecordOutcome(rec); err != nil {
		s.logger.Warn(fmt.Sprintf("Could not record outcome in run history: %v", err))
	}
}

func (s *Service) finish(runID, status string, summary RunSummary) {
	if err := s.journal.FinishRun(runID, status, summary, s.clock.Now()); err != nil {
		s.logger.Warn(fmt.Sprintf("Could not finish run history entry: %v", err))
	}
}

func (s *Service) relative(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
