package fixer

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RenameState is the result of a coupled media and sidecar rename.
type RenameState int

const (
	// RenameNotNeeded means the media file's name already matches its content.
	RenameNotNeeded RenameState = iota
	// RenameApplied means both files now carry the corrected name.
	RenameApplied
	// RenameConflict means nothing was moved: a target name was taken or the
	// first move failed.
	RenameConflict
	// RenamePartial means the media file moved but the sidecar did not follow.
	RenamePartial
)

func (s RenameState) String() string {
	switch s {
	case RenameNotNeeded:
		return "not_needed"
	case RenameApplied:
		return "applied"
	case RenameConflict:
		return "conflict"
	case RenamePartial:
		return "partial"
	default:
		return "unknown"
	}
}

// RenameResult reports where the files are after reconciliation.
type RenameResult struct {
	State       RenameState
	MediaPath   string
	SidecarPath string
	Err         error
}

// RenameReconciler fixes media files whose extension lies about their content,
// such as a JPEG exported with a ".heic" name. The sidecar is renamed along
// with the media file so the pair keeps matching.
type RenameReconciler struct {
	fsmgr  FilesystemManager
	tool   MetadataTool
	media  *MediaTypes
	logger Logger
}

func NewRenameReconciler(fsmgr FilesystemManager, tool MetadataTool, media *MediaTypes, logger Logger) *RenameReconciler {
	return &RenameReconciler{fsmgr: fsmgr, tool: tool, media: media, logger: logger}
}

// Reconcile probes the media file and renames the pair if its content does
// not match its extension. rec.Path and media.Path are left untouched; callers
// take the new locations from the result.
func (r *RenameReconciler) Reconcile(rec *SidecarRecord, media *MediaCandidate) RenameResult {
	result := RenameResult{State: RenameNotNeeded, MediaPath: media.Path, SidecarPath: rec.Path}

	mediaName := filepath.Base(media.Path)
	if !r.media.IsMislabeledCandidate(mediaName) {
		return result
	}

	probe, err := r.tool.Probe(media.Path)
	if err != nil {
		r.logger.Warn(fmt.Sprintf("Could not check the format of %s: %v", mediaName, err), "path", media.Path)
		return result
	}
	declared := filepath.Ext(mediaName)
	newExt, mismatch := probe.CorrectedExtension(declared)
	if !mismatch {
		return result
	}

	newMediaName := strings.TrimSuffix(mediaName, declared) + newExt
	newMedia := filepath.Join(filepath.Dir(media.Path), newMediaName)
	newSidecar := rec.Path
	if base := rec.Base(); nameKey(base) == nameKey(mediaName) {
		newSidecar = filepath.Join(rec.Dir(), newMediaName+rec.Name.Suffix)
	} else if len(base) > len(declared) && strings.EqualFold(base[len(base)-len(declared):], declared) {
		// Indexed duplicates put the marker after the stem, so the sidecar
		// still names the old extension inside its base.
		newSidecar = filepath.Join(rec.Dir(), base[:len(base)-len(declared)]+newExt+rec.Name.Suffix)
	}
	r.logger.Info(fmt.Sprintf("%s is really %s content, renaming to %s", mediaName, strings.TrimPrefix(strings.ToUpper(newExt), "."), newMediaName),
		"media", media.Path, "target", newMedia)

	if r.fsmgr.Exists(newMedia) {
		result.State = RenameConflict
		result.Err = fmt.Errorf("%w: %s", ErrRenameConflict, newMedia)
		return result
	}
	if newSidecar != rec.Path && r.fsmgr.Exists(newSidecar) {
		result.State = RenameConflict
		result.Err = fmt.Errorf("%w: %s", ErrRenameConflict, newSidecar)
		return result
	}

	if err := r.fsmgr.Move(media.Path, newMedia); err != nil {
		result.State = RenameConflict
		result.Err = fmt.Errorf("%w: moving %s: %v", ErrRenameConflict, mediaName, err)
		return result
	}
	result.MediaPath = newMedia

	if newSidecar != rec.Path {
		if err := r.fsmgr.Move(rec.Path, newSidecar); err != nil {
			result.State = RenamePartial
			result.Err = fmt.Errorf("%w: %s: %v", ErrRenamePartial, filepath.Base(rec.Path), err)
			return result
		}
		result.SidecarPath = newSidecar
	}

	result.State = RenameApplied
	return result
}
