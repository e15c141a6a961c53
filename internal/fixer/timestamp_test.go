package fixer

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

func epochOf(y int, m time.Month, d, hh, mm, ss int) string {
	return strconv.FormatInt(time.Date(y, m, d, hh, mm, ss, 0, time.UTC).Unix(), 10)
}

func TestResolveTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		epoch string
		mode  TimezoneMode
		want  string
	}{
		{"utc", "1700000000", ModeUTC, "2023:11:14 22:13:20"},
		{"pacific standard time", "1700000000", ModePacific, "2023:11:14 14:13:20"},
		{"pacific daylight time", epochOf(2023, time.July, 4, 19, 0, 0), ModePacific, "2023:07:04 12:00:00"},
		{"second before dst starts", epochOf(2023, time.March, 12, 9, 59, 59), ModePacific, "2023:03:12 01:59:59"},
		{"dst starts", epochOf(2023, time.March, 12, 10, 0, 0), ModePacific, "2023:03:12 03:00:00"},
		{"second before dst ends", epochOf(2023, time.November, 5, 8, 59, 59), ModePacific, "2023:11:05 01:59:59"},
		{"dst ends", epochOf(2023, time.November, 5, 9, 0, 0), ModePacific, "2023:11:05 01:00:00"},
		{"epoch zero", "0", ModeUTC, "1970:01:01 00:00:00"},
		{"negative epoch", "-86400", ModeUTC, "1969:12:31 00:00:00"},
		{"surrounding whitespace", " 1700000000 ", ModeUTC, "2023:11:14 22:13:20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTimestamp(tt.epoch, tt.mode)
			if err != nil {
				t.Fatalf("ResolveTimestamp() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveTimestamp(%q, %s) = %q, want %q", tt.epoch, tt.mode, got, tt.want)
			}
		})
	}
}

func TestResolveTimestamp_Invalid(t *testing.T) {
	for _, epoch := range []string{"", "abc", "1.7e9", "12abc"} {
		t.Run(epoch, func(t *testing.T) {
			_, err := ResolveTimestamp(epoch, ModeUTC)
			if !errors.Is(err, ErrInvalidTimestamp) {
				t.Errorf("ResolveTimestamp(%q) error = %v, want ErrInvalidTimestamp", epoch, err)
			}
		})
	}
}

func TestNthSunday(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		n     int
		want  int
	}{
		{2023, time.March, 2, 12},
		{2023, time.November, 1, 5},
		{2024, time.March, 2, 10},
		{2024, time.November, 1, 3},
		{2026, time.March, 2, 8},
		{2026, time.November, 1, 1},
	}
	for _, tt := range tests {
		if got := nthSunday(tt.year, tt.month, tt.n); got != tt.want {
			t.Errorf("nthSunday(%d, %s, %d) = %d, want %d", tt.year, tt.month, tt.n, got, tt.want)
		}
	}
}

func TestParseTimezoneMode(t *testing.T) {
	for in, want := range map[string]TimezoneMode{"pacific": ModePacific, "UTC": ModeUTC, " Pacific ": ModePacific} {
		got, err := ParseTimezoneMode(in)
		if err != nil {
			t.Fatalf("ParseTimezoneMode(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("ParseTimezoneMode(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseTimezoneMode("eastern"); err == nil {
		t.Error("ParseTimezoneMode(eastern) expected error")
	}
}
