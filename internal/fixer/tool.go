package fixer

import "strings"

// Coordinates is a validated GPS position.
type Coordinates struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64
}

// WriteRequest describes one metadata write against a media file.
type WriteRequest struct {
	Path string
	// Timestamp is already rendered as "YYYY:MM:DD HH:MM:SS".
	Timestamp string
	// Video adds the QuickTime track and media date tags.
	Video bool
	// AllDates writes every date tag the tool knows about. Used by manual date edits.
	AllDates    bool
	GPS         *Coordinates
	Description string
}

// ProbeResult is what the tool reports about a file's real content type.
type ProbeResult struct {
	// Extension is the tool's preferred extension for the content, e.g. "JPG".
	Extension string
	// Diagnostic is any warning or error text printed while probing.
	Diagnostic string
}

// CorrectedExtension returns the extension the file should carry when the probe
// says the declared extension is wrong. declared includes the leading dot.
// The returned extension keeps the declared extension's letter case.
func (p ProbeResult) CorrectedExtension(declared string) (string, bool) {
	diag := strings.ToLower(p.Diagnostic)
	var actual string
	switch {
	case strings.Contains(diag, "looks more like a jpeg"), strings.Contains(diag, "not a valid heic"):
		actual = "jpg"
	case p.Extension != "":
		actual = strings.ToLower(strings.TrimPrefix(p.Extension, "."))
	default:
		return "", false
	}

	want := strings.ToLower(strings.TrimPrefix(declared, "."))
	if actual == want || sameFamily(actual, want) {
		return "", false
	}

	ext := "." + actual
	if declared == strings.ToUpper(declared) {
		ext = strings.ToUpper(ext)
	}
	return ext, true
}

func sameFamily(a, b string) bool {
	families := [][]string{{"heic", "heif"}, {"jpg", "jpeg"}, {"tif", "tiff"}}
	for _, f := range families {
		if contains(f, a) && contains(f, b) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// MetadataTool is the external metadata writer.
type MetadataTool interface {
	// Write applies req. A nil error means the tool exited zero.
	// Failures are *ToolExecutionError, or wrap ErrToolNotFound when the tool cannot start.
	Write(req WriteRequest) error

	// Probe asks the tool what the file really contains.
	Probe(path string) (ProbeResult, error)

	// Version runs the tool's version query.
	Version() (string, error)
}
