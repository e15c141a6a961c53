package fixer

import "path/filepath"

// PreviewEntry is what a run would do with one sidecar.
type PreviewEntry struct {
	Sidecar  string
	Media    string
	Strategy Strategy
	Found    bool
}

// StatusReport is a read-only preview of a run over a tree.
type StatusReport struct {
	Root    string
	Entries []PreviewEntry
	// Orphans are the media files the quarantine pass would move.
	Orphans []string
}

// Matched counts entries with a media file.
func (r *StatusReport) Matched() int {
	n := 0
	for _, e := range r.Entries {
		if e.Found {
			n++
		}
	}
	return n
}

// Preview scans root and reports the media match for every sidecar and the
// media files that have no sidecar. It neither moves files nor runs the tool.
func (s *Service) Preview(root string) (*StatusReport, error) {
	records, err := s.scanner.Scan(root)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{Root: root}
	for _, rec := range records {
		entry := PreviewEntry{Sidecar: s.relative(root, rec.Path)}
		if media, ok := s.matcher.Match(rec); ok {
			entry.Found = true
			entry.Media = s.relative(root, media.Path)
			entry.Strategy = media.Strategy
		}
		report.Entries = append(report.Entries, entry)
	}

	orphans, err := s.organizer.Orphans(root)
	if err != nil {
		return nil, err
	}
	for _, p := range orphans {
		report.Orphans = append(report.Orphans, s.relative(root, p))
	}

	s.logger.Debug("preview complete", "root", filepath.Clean(root), "sidecars", len(report.Entries), "orphans", len(report.Orphans))
	return report, nil
}
