package fixer

import (
	"fmt"
	"strings"
)

// DefaultQuarantineFolder and DefaultArchiveFolder are the output folder names
// created under the source root.
const (
	DefaultQuarantineFolder = "NO_METADATA_FOUND"
	DefaultArchiveFolder    = "JSON_METADATA"
)

// OutputFolders names the two folders the organizer fills.
type OutputFolders struct {
	Quarantine string
	Archive    string
}

// DefaultOutputFolders returns the built-in folder names.
func DefaultOutputFolders() OutputFolders {
	return OutputFolders{Quarantine: DefaultQuarantineFolder, Archive: DefaultArchiveFolder}
}

// IsOutput reports whether a directory named name is one of the output folders.
// Output folders are recognized by name at any depth.
func (f OutputFolders) IsOutput(name string) bool {
	return strings.EqualFold(name, f.Quarantine) || strings.EqualFold(name, f.Archive)
}

// SidecarScanner finds sidecar files under a root, never descending into output folders.
type SidecarScanner struct {
	fsmgr   FilesystemManager
	folders OutputFolders
}

func NewSidecarScanner(fsmgr FilesystemManager, folders OutputFolders) *SidecarScanner {
	return &SidecarScanner{fsmgr: fsmgr, folders: folders}
}

// Scan returns a record for every sidecar under root, sorted by path.
func (s *SidecarScanner) Scan(root string) ([]*SidecarRecord, error) {
	paths, err := s.fsmgr.FindFiles(root, s.folders.IsOutput)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootInaccessible, root, err)
	}

	var records []*SidecarRecord
	for _, p := range paths {
		if rec, ok := NewSidecarRecord(p); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}
