package app

import (
	"strings"
	"time"
)

// Operation describes the CLI command being run. Its ID tags every line of
// the file log written during the command.
type Operation struct {
	ID        string
	Name      string
	Args      []string
	StartedAt time.Time
	Status    string // "success" or "error"
}

// NewOperation creates an operation that starts now.
func NewOperation(name string, args []string, now time.Time) *Operation {
	return &Operation{
		ID:        now.UTC().Format("20060102T150405Z"),
		Name:      name,
		Args:      append([]string(nil), args...),
		StartedAt: now,
		Status:    "success",
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Failed reports whether Fail was called.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}

func (op *Operation) String() string {
	if len(op.Args) == 0 {
		return op.Name
	}
	return op.Name + " " + strings.Join(op.Args, " ")
}
