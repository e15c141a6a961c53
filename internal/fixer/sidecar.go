package fixer

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// SidecarStems are the name fragments that sit between a media base name and
// ".json" in an export sidecar, including the truncated forms produced when
// the export tool hits its file name length limit.
//
// The order matters: longer stems come before any shorter stem they share a
// prefix with, so ".supplemental-metadat" is tried before ".supplemental-meta"
// and ".supplemental-" before ".supplemental". Matching is case-insensitive.
var SidecarStems = []string{
	".supplemental-metadata",
	".supplemental-metadat",
	".supplemental-metada",
	".supplemental-metad",
	".supplemental-meta",
	".supplemental-met",
	".supplemental-me",
	".supplemental-m",
	".supplemental-",
	".supplemental",
	".supplementa",
	".supplement",
}

const sidecarExt = ".json"

var duplicateIndex = regexp.MustCompile(`\(\d+\)$`)

// SidecarName is a sidecar file name split into its parts.
type SidecarName struct {
	// Base is the media name the sidecar describes, e.g. "IMG_0001.jpg".
	Base string
	// Stem is the matched fragment as written in the file name.
	Stem string
	// Index is a trailing duplicate marker such as "(1)", or empty.
	Index string
	// Suffix is everything after Base, e.g. ".supplemental-metadata(1).json".
	Suffix string
}

// ParseSidecarName recognizes a sidecar file name. It returns false for
// anything that is not "<base><stem>[(N)].json" with a non-empty base.
func ParseSidecarName(name string) (SidecarName, bool) {
	if len(name) <= len(sidecarExt) || !strings.EqualFold(name[len(name)-len(sidecarExt):], sidecarExt) {
		return SidecarName{}, false
	}
	rest := name[:len(name)-len(sidecarExt)]

	index := duplicateIndex.FindString(rest)
	rest = rest[:len(rest)-len(index)]

	for _, stem := range SidecarStems {
		if len(rest) <= len(stem) {
			continue
		}
		tail := rest[len(rest)-len(stem):]
		if !strings.EqualFold(tail, stem) {
			continue
		}
		base := rest[:len(rest)-len(stem)]
		return SidecarName{
			Base:   base,
			Stem:   tail,
			Index:  index,
			Suffix: name[len(base):],
		}, true
	}
	return SidecarName{}, false
}

// IsSidecarName reports whether name parses as a sidecar.
func IsSidecarName(name string) bool {
	_, ok := ParseSidecarName(name)
	return ok
}

// SidecarRecord is a discovered sidecar. Its name parts are fixed at discovery;
// Path moves on when a reconciling rename relocates the file.
type SidecarRecord struct {
	Path string
	Name SidecarName
}

// NewSidecarRecord returns a record for path, or false if the file name is not a sidecar.
func NewSidecarRecord(path string) (*SidecarRecord, bool) {
	name, ok := ParseSidecarName(filepath.Base(path))
	if !ok {
		return nil, false
	}
	return &SidecarRecord{Path: path, Name: name}, true
}

// Dir is the directory the sidecar currently lives in.
func (r *SidecarRecord) Dir() string { return filepath.Dir(r.Path) }

// Base is the media name the sidecar describes.
func (r *SidecarRecord) Base() string { return r.Name.Base }

// MediaMetadataPayload is the decoded content of a sidecar.
type MediaMetadataPayload struct {
	// CapturedAt is epoch seconds as decimal text.
	CapturedAt  string
	Latitude    *float64
	Longitude   *float64
	Altitude    *float64
	Description string
}

// Coordinates returns the payload's GPS position if it is worth writing:
// both coordinates present, not the (0, 0) placeholder, and in range.
func (p *MediaMetadataPayload) Coordinates() (*Coordinates, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return nil, false
	}
	lat, lon := *p.Latitude, *p.Longitude
	if lat == 0 && lon == 0 {
		return nil, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, false
	}
	return &Coordinates{Latitude: lat, Longitude: lon, Altitude: p.Altitude}, true
}

type sidecarDocument struct {
	PhotoTakenTime *struct {
		Timestamp *epochText `json:"timestamp"`
	} `json:"photoTakenTime"`
	GeoData *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Altitude  *float64 `json:"altitude"`
	} `json:"geoData"`
	Description string `json:"description"`
}

// epochText accepts the timestamp as either a JSON string or a JSON number.
type epochText string

func (e *epochText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*e = epochText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("timestamp must be a string or number, got %s", b)
	}
	*e = epochText(n.String())
	return nil
}

// DecodeSidecar parses sidecar content. It returns a *SidecarDecodeError for
// malformed documents and ErrMissingTimestamp when the capture time is absent.
func DecodeSidecar(data []byte) (*MediaMetadataPayload, error) {
	var doc sidecarDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &SidecarDecodeError{Err: err}
	}

	if doc.PhotoTakenTime == nil || doc.PhotoTakenTime.Timestamp == nil ||
		strings.TrimSpace(string(*doc.PhotoTakenTime.Timestamp)) == "" {
		return nil, ErrMissingTimestamp
	}

	payload := &MediaMetadataPayload{
		CapturedAt:  string(*doc.PhotoTakenTime.Timestamp),
		Description: strings.TrimSpace(doc.Description),
	}
	if doc.GeoData != nil {
		payload.Latitude = doc.GeoData.Latitude
		payload.Longitude = doc.GeoData.Longitude
		payload.Altitude = doc.GeoData.Altitude
	}
	return payload, nil
}

// IsDecodeError reports whether err came from a malformed sidecar.
func IsDecodeError(err error) bool {
	var de *SidecarDecodeError
	return errors.As(err, &de)
}
