package fixer

import (
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultMediaExtensions is the lookup order used when no configuration overrides it.
var DefaultMediaExtensions = []string{".jpg", ".jpeg", ".heic", ".png", ".gif", ".webp", ".mp4", ".m4v", ".mov", ".MP.jpg"}

// DefaultVideoExtensions get the QuickTime date tags on write.
var DefaultVideoExtensions = []string{".mp4", ".m4v", ".mov", ".3gp"}

// DefaultMislabeledExtensions are probed for content that does not match the name.
var DefaultMislabeledExtensions = []string{".heic", ".heif"}

// DefaultDuplicateMarkers are tried by the duplicate-index lookup.
var DefaultDuplicateMarkers = []string{"(1)", "(2)", "(3)"}

// MediaTypes classifies file names by extension.
type MediaTypes struct {
	lookup     []string
	byLength   []string
	video      map[string]bool
	mislabeled map[string]bool
}

// NewMediaTypes builds a classifier. exts is the lookup order; each entry is
// tried as written, then lower-cased, then upper-cased.
func NewMediaTypes(exts, video, mislabeled []string) *MediaTypes {
	m := &MediaTypes{
		video:      lowerSet(video),
		mislabeled: lowerSet(mislabeled),
	}

	seen := make(map[string]bool)
	for _, ext := range exts {
		for _, v := range []string{ext, strings.ToLower(ext), strings.ToUpper(ext)} {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			m.lookup = append(m.lookup, v)
		}
	}

	folded := make(map[string]bool)
	for _, ext := range exts {
		l := strings.ToLower(ext)
		if l != "" && !folded[l] {
			folded[l] = true
			m.byLength = append(m.byLength, l)
		}
	}
	for ext := range m.video {
		if !folded[ext] {
			folded[ext] = true
			m.byLength = append(m.byLength, ext)
		}
	}
	sort.SliceStable(m.byLength, func(i, j int) bool { return len(m.byLength[i]) > len(m.byLength[j]) })
	return m
}

// DefaultMediaTypes returns the built-in classifier.
func DefaultMediaTypes() *MediaTypes {
	return NewMediaTypes(DefaultMediaExtensions, DefaultVideoExtensions, DefaultMislabeledExtensions)
}

func lowerSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(ext)] = true
	}
	return set
}

// LookupExtensions returns every extension spelling to try, in order.
func (m *MediaTypes) LookupExtensions() []string {
	return m.lookup
}

// Extension returns the media extension name ends with, as written in name.
// The longest known extension wins, so ".MP.jpg" beats ".jpg".
func (m *MediaTypes) Extension(name string) (string, bool) {
	for _, ext := range m.byLength {
		if len(name) > len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext) {
			return name[len(name)-len(ext):], true
		}
	}
	return "", false
}

// IsMedia reports whether name carries a known media extension.
func (m *MediaTypes) IsMedia(name string) bool {
	_, ok := m.Extension(name)
	return ok
}

// IsVideo reports whether name carries a video extension.
func (m *MediaTypes) IsVideo(name string) bool {
	return m.video[strings.ToLower(filepath.Ext(name))]
}

// IsMislabeledCandidate reports whether name's extension is one exporters
// sometimes put on content of another format.
func (m *MediaTypes) IsMislabeledCandidate(name string) bool {
	return m.mislabeled[strings.ToLower(filepath.Ext(name))]
}

// Stem returns name without its media extension, or name itself if it has none.
func (m *MediaTypes) Stem(name string) string {
	if ext, ok := m.Extension(name); ok {
		return name[:len(name)-len(ext)]
	}
	return name
}

var folder = cases.Fold()

// nameKey is the comparison form of a file name: NFC-normalized and case-folded,
// so names that differ only in Unicode composition or letter case compare equal.
func nameKey(name string) string {
	return folder.String(norm.NFC.String(name))
}
