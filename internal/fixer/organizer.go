package fixer

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
)

// ManifestName is the file written into each output folder listing what was moved there.
const ManifestName = "README.txt"

const quarantineHeader = `NO_METADATA_FOUND
=================

The media files in this folder had no matching JSON sidecar in the export
when metafix ran, so their capture date, location and description could not
be restored. They were moved here unchanged. If you find their sidecars, put
both back in the source tree and run metafix again.
`

const archiveHeader = `JSON_METADATA
=============

These JSON sidecar files were read by metafix and moved out of the way once
their metadata had been written into the matching media files. They are kept
for reference and are not needed to view the media.
`

// archivedCounter matches the "_N" a collision-free move appends to a base name.
var archivedCounter = regexp.MustCompile(`_\d+$`)

// PassResult reports one organizer pass.
type PassResult struct {
	// Moved holds the destination file names, in move order.
	Moved  []string
	Failed int
}

// TreeOrganizer moves orphaned media into the quarantine folder and processed
// sidecars into the archive folder. Both passes read the filesystem as it is
// now, so they can be rerun on the same tree without moving anything twice.
type TreeOrganizer struct {
	fsmgr   FilesystemManager
	media   *MediaTypes
	folders OutputFolders
	logger  Logger
	clock   Clock
}

func NewTreeOrganizer(fsmgr FilesystemManager, media *MediaTypes, folders OutputFolders, logger Logger, clock Clock) *TreeOrganizer {
	return &TreeOrganizer{fsmgr: fsmgr, media: media, folders: folders, logger: logger, clock: clock}
}

// Orphans returns the media files under root that no sidecar refers to.
// A media file has a sidecar when a sidecar in its directory, or any sidecar
// already in the archive folder, describes the same base name.
func (o *TreeOrganizer) Orphans(root string) ([]string, error) {
	files, err := o.fsmgr.FindFiles(root, o.folders.IsOutput)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	live := make(map[string]bool)
	var media []string
	for _, p := range files {
		name := filepath.Base(p)
		if sn, ok := ParseSidecarName(name); ok {
			for _, k := range o.sidecarKeys(sn) {
				live[dirKey(filepath.Dir(p), k)] = true
			}
			continue
		}
		if o.media.IsMedia(name) {
			media = append(media, p)
		}
	}
	archived := o.archivedKeys(root)

	var orphans []string
	for _, p := range media {
		dir, name := filepath.Dir(p), filepath.Base(p)
		matched := false
		for _, k := range []string{nameKey(name), nameKey(o.media.Stem(name))} {
			if live[dirKey(dir, k)] || archived[k] {
				matched = true
				break
			}
		}
		if !matched {
			orphans = append(orphans, p)
		}
	}
	return orphans, nil
}

// QuarantineOrphans moves every orphaned media file into the quarantine folder.
func (o *TreeOrganizer) QuarantineOrphans(root string) (PassResult, error) {
	dest := filepath.Join(root, o.folders.Quarantine)
	if err := o.fsmgr.EnsureDir(dest); err != nil {
		return PassResult{}, fmt.Errorf("creating %s: %w", dest, err)
	}

	orphans, err := o.Orphans(root)
	if err != nil {
		return PassResult{}, err
	}

	res := o.moveAll(orphans, dest)
	if len(res.Moved) > 0 {
		if err := o.writeManifest(dest, quarantineHeader, res.Moved); err != nil {
			o.logger.Warn(fmt.Sprintf("Could not write %s manifest: %v", o.folders.Quarantine, err))
		}
		o.logger.Info(fmt.Sprintf("Moved %d media files without metadata to %s", len(res.Moved), o.folders.Quarantine),
			"moved", len(res.Moved), "failed", res.Failed)
	}
	return res, nil
}

// ArchiveSidecars moves every sidecar outside the output folders into the archive folder.
func (o *TreeOrganizer) ArchiveSidecars(root string) (PassResult, error) {
	dest := filepath.Join(root, o.folders.Archive)
	if err := o.fsmgr.EnsureDir(dest); err != nil {
		return PassResult{}, fmt.Errorf("creating %s: %w", dest, err)
	}

	files, err := o.fsmgr.FindFiles(root, o.folders.IsOutput)
	if err != nil {
		return PassResult{}, fmt.Errorf("listing %s: %w", root, err)
	}
	var sidecars []string
	for _, p := range files {
		if IsSidecarName(filepath.Base(p)) {
			sidecars = append(sidecars, p)
		}
	}

	res := o.moveAll(sidecars, dest)
	if len(res.Moved) > 0 {
		if err := o.writeManifest(dest, archiveHeader, res.Moved); err != nil {
			o.logger.Warn(fmt.Sprintf("Could not write %s manifest: %v", o.folders.Archive, err))
		}
		o.logger.Info(fmt.Sprintf("Archived %d sidecar files to %s", len(res.Moved), o.folders.Archive),
			"moved", len(res.Moved), "failed", res.Failed)
	}
	return res, nil
}

func (o *TreeOrganizer) moveAll(paths []string, destDir string) PassResult {
	var res PassResult
	for _, src := range paths {
		name := filepath.Base(src)
		dest := o.uniqueDest(destDir, name)
		if err := o.fsmgr.Move(src, dest); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				o.logger.Debug(fmt.Sprintf("%s disappeared before it could be moved", name), "path", src)
				continue
			}
			o.logger.Error(fmt.Sprintf("Failed to move %s: %v", name, err), "path", src, "dest", dest)
			res.Failed++
			continue
		}
		o.logger.Debug(fmt.Sprintf("Moved %s", name), "from", src, "to", dest)
		res.Moved = append(res.Moved, filepath.Base(dest))
	}
	return res
}

// uniqueDest picks a free name in dir, appending "_N" before the extension
// (before the whole sidecar suffix for sidecars) when name is taken.
func (o *TreeOrganizer) uniqueDest(dir, name string) string {
	dest := filepath.Join(dir, name)
	if !o.fsmgr.Exists(dest) {
		return dest
	}

	head, tail := o.splitForCounter(name)
	for i := 1; ; i++ {
		dest = filepath.Join(dir, fmt.Sprintf("%s_%d%s", head, i, tail))
		if !o.fsmgr.Exists(dest) {
			return dest
		}
	}
}

func (o *TreeOrganizer) splitForCounter(name string) (string, string) {
	if sn, ok := ParseSidecarName(name); ok {
		return sn.Base, sn.Suffix
	}
	if ext, ok := o.media.Extension(name); ok {
		return name[:len(name)-len(ext)], ext
	}
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)], ext
}

// sidecarKeys are the media name keys a sidecar vouches for.
func (o *TreeOrganizer) sidecarKeys(sn SidecarName) []string {
	base := sn.Base
	stem := o.media.Stem(base)
	keys := []string{nameKey(base)}
	if stem != base {
		keys = append(keys, nameKey(stem))
	}
	if sn.Index != "" {
		ext := base[len(stem):]
		keys = append(keys, nameKey(stem+sn.Index+ext), nameKey(stem+sn.Index))
	}
	return keys
}

// archivedKeys collects the keys of sidecars already in the archive folder.
// A trailing "_N" is only read as a collision counter when the name without
// it is archived too, since uniqueDest adds one only when that name is taken.
func (o *TreeOrganizer) archivedKeys(root string) map[string]bool {
	keys := make(map[string]bool)
	names, err := o.fsmgr.ListDir(filepath.Join(root, o.folders.Archive))
	if err != nil {
		return keys
	}
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[nameKey(name)] = true
	}
	for _, name := range names {
		sn, ok := ParseSidecarName(name)
		if !ok {
			continue
		}
		for _, k := range o.sidecarKeys(sn) {
			keys[k] = true
		}
		trimmed := archivedCounter.ReplaceAllString(sn.Base, "")
		if trimmed == sn.Base || trimmed == "" || !present[nameKey(trimmed+sn.Suffix)] {
			continue
		}
		sn.Base = trimmed
		for _, k := range o.sidecarKeys(sn) {
			keys[k] = true
		}
	}
	return keys
}

func (o *TreeOrganizer) writeManifest(dir, header string, names []string) error {
	path := filepath.Join(dir, ManifestName)
	var b strings.Builder
	if !o.fsmgr.Exists(path) {
		b.WriteString(header)
	}
	fmt.Fprintf(&b, "\n%s: %d files\n", o.clock.Now().Format("2006-01-02 15:04:05"), len(names))
	for _, n := range names {
		b.WriteString("  ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	return o.fsmgr.AppendFile(path, []byte(b.String()))
}

func dirKey(dir, key string) string {
	return dir + "\x00" + key
}
