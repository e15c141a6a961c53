package app

import (
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.FixedZone("PST", -8*3600))

	tests := []struct {
		name       string
		operation  string
		args       []string
		wantString string
	}{
		{
			name:       "with arguments",
			operation:  "run",
			args:       []string{"/photos", "utc", "/usr/bin/exiftool"},
			wantString: "run /photos utc /usr/bin/exiftool",
		},
		{
			name:       "no arguments",
			operation:  "history",
			wantString: "history",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, tt.args, now)

			if op.ID != "20240115T183000Z" {
				t.Errorf("ID = %q, want %q", op.ID, "20240115T183000Z")
			}
			if op.Status != "success" || op.Failed() {
				t.Errorf("Status = %q, want %q", op.Status, "success")
			}
			if got := op.String(); got != tt.wantString {
				t.Errorf("String() = %q, want %q", got, tt.wantString)
			}
		})
	}
}

func TestOperation_Fail(t *testing.T) {
	args := []string{"a"}
	op := NewOperation("run", args, time.Now())
	args[0] = "changed"

	op.Fail()
	if !op.Failed() || op.Status != "error" {
		t.Errorf("Status = %q after Fail(), want error", op.Status)
	}
	if op.Args[0] != "a" {
		t.Errorf("Args aliased caller slice: %v", op.Args)
	}
}
