package fixer

import (
	"path/filepath"
	"strings"
)

// Strategy names the lookup that located a media file.
type Strategy int

const (
	StrategyExact Strategy = iota
	StrategyListing
	StrategyDuplicate
	StrategyParent
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyListing:
		return "listing"
	case StrategyDuplicate:
		return "duplicate"
	case StrategyParent:
		return "parent"
	default:
		return "unknown"
	}
}

// MediaCandidate is the media file matched to a sidecar.
type MediaCandidate struct {
	Path string
	// Extension is the media extension as written in the file name.
	Extension string
	Strategy  Strategy
}

// MediaMatcher resolves a sidecar to its media file. Lookups run in a fixed
// order and the first hit wins:
//
//  0. indexed: for a sidecar carrying "(N)", the media copy with the same marker
//  1. exact: the sidecar's base name, then base name plus each media extension
//  2. listing: any file in the directory whose name starts with the base name
//  3. duplicate: base name with a duplicate marker inserted before or after the extension
//  4. parent: the exact lookup repeated one directory up
type MediaMatcher struct {
	fsmgr   FilesystemManager
	media   *MediaTypes
	markers []string
}

func NewMediaMatcher(fsmgr FilesystemManager, media *MediaTypes, markers []string) *MediaMatcher {
	return &MediaMatcher{fsmgr: fsmgr, media: media, markers: markers}
}

// Match returns the media file for rec, or false if none of the lookups finds one.
func (m *MediaMatcher) Match(rec *SidecarRecord) (*MediaCandidate, bool) {
	dir := rec.Dir()
	base := rec.Base()
	index := rec.Name.Index

	// An indexed sidecar belongs to the indexed copy, never to the original.
	if index != "" {
		if c, ok := m.duplicate(dir, base, []string{index}); ok {
			return c, true
		}
	}
	if c, ok := m.exact(dir, base); ok {
		return c, true
	}
	if c, ok := m.listing(dir, base); ok {
		return c, true
	}
	if c, ok := m.duplicate(dir, base, m.markers); ok {
		return c, true
	}
	if parent := filepath.Dir(dir); parent != dir {
		if c, ok := m.exact(parent, base); ok {
			c.Strategy = StrategyParent
			return c, true
		}
	}
	return nil, false
}

func (m *MediaMatcher) exact(dir, base string) (*MediaCandidate, bool) {
	if ext, ok := m.media.Extension(base); ok {
		p := filepath.Join(dir, base)
		if m.fsmgr.Exists(p) {
			return &MediaCandidate{Path: p, Extension: ext, Strategy: StrategyExact}, true
		}
	}
	for _, ext := range m.media.LookupExtensions() {
		p := filepath.Join(dir, base+ext)
		if m.fsmgr.Exists(p) {
			return &MediaCandidate{Path: p, Extension: ext, Strategy: StrategyExact}, true
		}
	}
	return nil, false
}

// listing scans the directory for a media file whose name starts with base.
// Names continuing with a separator ("." or "(") are preferred over names that
// merely share a prefix, so "IMG_1" finds "IMG_1.jpg" before "IMG_10.jpg".
func (m *MediaMatcher) listing(dir, base string) (*MediaCandidate, bool) {
	names, err := m.fsmgr.ListDir(dir)
	if err != nil {
		return nil, false
	}
	key := nameKey(base)

	var loose string
	for _, name := range names {
		if IsSidecarName(name) || !m.media.IsMedia(name) {
			continue
		}
		k := nameKey(name)
		if !strings.HasPrefix(k, key) {
			continue
		}
		rest := k[len(key):]
		if strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, "(") {
			return m.listed(dir, name), true
		}
		if loose == "" {
			loose = name
		}
	}
	if loose != "" {
		return m.listed(dir, loose), true
	}
	return nil, false
}

func (m *MediaMatcher) listed(dir, name string) *MediaCandidate {
	ext, _ := m.media.Extension(name)
	return &MediaCandidate{Path: filepath.Join(dir, name), Extension: ext, Strategy: StrategyListing}
}

// duplicate handles exporters that put the duplicate marker on the sidecar
// suffix while the media name carries it next to the extension.
func (m *MediaMatcher) duplicate(dir, base string, markers []string) (*MediaCandidate, bool) {
	ext, hasExt := m.media.Extension(base)
	for _, mk := range markers {
		if hasExt {
			stem := base[:len(base)-len(ext)]
			p := filepath.Join(dir, stem+mk+ext)
			if m.fsmgr.Exists(p) {
				return &MediaCandidate{Path: p, Extension: ext, Strategy: StrategyDuplicate}, true
			}
		}
		for _, e := range m.media.LookupExtensions() {
			p := filepath.Join(dir, base+mk+e)
			if m.fsmgr.Exists(p) {
				return &MediaCandidate{Path: p, Extension: e, Strategy: StrategyDuplicate}, true
			}
		}
	}
	return nil, false
}
