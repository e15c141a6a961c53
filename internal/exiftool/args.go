package exiftool

import (
	"math"
	"strconv"

	"metafix/internal/fixer"
)

var quickTimeDateTags = []string{"TrackCreateDate", "TrackModifyDate", "MediaCreateDate", "MediaModifyDate"}

// WriteArgs builds the in-place write command line for req. The file path is last.
func WriteArgs(req fixer.WriteRequest) []string {
	ts := req.Timestamp
	args := []string{"-overwrite_original", "-q"}

	if req.AllDates {
		args = append(args, "-AllDates="+ts)
	} else {
		args = append(args, "-DateTimeOriginal="+ts)
	}
	args = append(args, "-FileCreateDate="+ts, "-FileModifyDate="+ts)

	switch {
	case req.AllDates:
		args = appendTags(args, quickTimeDateTags, ts)
	case req.Video:
		args = append(args, "-CreateDate="+ts, "-ModifyDate="+ts)
		args = appendTags(args, quickTimeDateTags, ts)
	}

	if g := req.GPS; g != nil {
		args = append(args,
			"-GPSLatitude="+formatFloat(math.Abs(g.Latitude)),
			"-GPSLatitudeRef="+hemisphere(g.Latitude, "N", "S"),
			"-GPSLongitude="+formatFloat(math.Abs(g.Longitude)),
			"-GPSLongitudeRef="+hemisphere(g.Longitude, "E", "W"),
		)
		if g.Altitude != nil {
			ref := "0"
			if *g.Altitude < 0 {
				ref = "1"
			}
			args = append(args, "-GPSAltitude="+formatFloat(math.Abs(*g.Altitude)), "-GPSAltitudeRef="+ref)
		}
	}

	if req.Description != "" {
		args = append(args, "-ImageDescription="+req.Description, "-XMP-dc:Description="+req.Description)
	}

	return append(args, req.Path)
}

func appendTags(args, tags []string, value string) []string {
	for _, tag := range tags {
		args = append(args, "-"+tag+"="+value)
	}
	return args
}

func hemisphere(v float64, pos, neg string) string {
	if v < 0 {
		return neg
	}
	return pos
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
