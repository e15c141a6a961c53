package fixer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimezoneMode selects how capture instants are rendered as local wall-clock times.
type TimezoneMode string

const (
	ModePacific TimezoneMode = "pacific"
	ModeUTC     TimezoneMode = "utc"
)

// ExifLayout is the wall-clock format the metadata tool expects.
const ExifLayout = "2006:01:02 15:04:05"

// ParseTimezoneMode accepts "pacific" or "utc", case-insensitively.
func ParseTimezoneMode(s string) (TimezoneMode, error) {
	switch TimezoneMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePacific:
		return ModePacific, nil
	case ModeUTC:
		return ModeUTC, nil
	default:
		return "", fmt.Errorf("invalid timezone mode %q: must be 'pacific' or 'utc'", s)
	}
}

// Label is the human-readable zone name used in progress messages.
func (m TimezoneMode) Label() string {
	if m == ModeUTC {
		return "UTC"
	}
	return "PDT/PST"
}

// ResolveTimestamp converts epoch seconds, given as decimal text, into a
// wall-clock string in the requested mode.
func ResolveTimestamp(epoch string, mode TimezoneMode) (string, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(epoch), 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not an integer", ErrInvalidTimestamp, epoch)
	}
	t := time.Unix(secs, 0).UTC()
	if t.Year() < 1 || t.Year() > 9999 {
		return "", fmt.Errorf("%w: %d is out of range", ErrInvalidTimestamp, secs)
	}

	switch mode {
	case ModeUTC:
		return t.Format(ExifLayout), nil
	case ModePacific:
		return t.Add(PacificOffset(t)).Format(ExifLayout), nil
	default:
		return "", fmt.Errorf("unknown timezone mode %q", mode)
	}
}

// PacificOffset returns the US Pacific offset from UTC at instant t:
// -7h during daylight time, -8h otherwise.
func PacificOffset(t time.Time) time.Duration {
	if IsPacificDST(t) {
		return -7 * time.Hour
	}
	return -8 * time.Hour
}

// IsPacificDST reports whether t falls inside US Pacific daylight time.
// Daylight time runs from 2:00 local on the second Sunday of March
// (10:00 UTC) to 2:00 local on the first Sunday of November (09:00 UTC).
// The rule is applied to every year, including years before it was enacted.
func IsPacificDST(t time.Time) bool {
	u := t.UTC()
	y := u.Year()
	start := time.Date(y, time.March, nthSunday(y, time.March, 2), 10, 0, 0, 0, time.UTC)
	end := time.Date(y, time.November, nthSunday(y, time.November, 1), 9, 0, 0, 0, time.UTC)
	return !u.Before(start) && u.Before(end)
}

func nthSunday(year int, month time.Month, n int) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
	firstSunday := 1 + (7-int(first))%7
	return firstSunday + 7*(n-1)
}
