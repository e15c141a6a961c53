package fixer

import (
	"errors"
	"fmt"
)

var (
	// ErrRootInaccessible is returned when the source directory itself cannot be read.
	// Unreadable entries below the root are skipped instead.
	ErrRootInaccessible = errors.New("source directory is not accessible")

	// ErrMissingTimestamp means the sidecar parsed but carries no capture time.
	ErrMissingTimestamp = errors.New("sidecar has no photoTakenTime timestamp")

	// ErrInvalidTimestamp means the capture time could not be converted to an instant.
	ErrInvalidTimestamp = errors.New("invalid capture timestamp")

	// ErrNoMediaFound means no matching strategy located a media file.
	ErrNoMediaFound = errors.New("no matching media file found")

	// ErrRenameConflict means a reconciling rename would overwrite an existing file.
	ErrRenameConflict = errors.New("rename target already exists")

	// ErrRenamePartial means the media file was renamed but its sidecar was not.
	ErrRenamePartial = errors.New("media renamed but sidecar rename failed")

	// ErrToolNotFound means the metadata tool could not be launched at all.
	// It aborts the run.
	ErrToolNotFound = errors.New("metadata tool not found")
)

// SidecarDecodeError wraps a failure to parse a sidecar document.
type SidecarDecodeError struct {
	Path string
	Err  error
}

func (e *SidecarDecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decoding sidecar: %v", e.Err)
	}
	return fmt.Sprintf("decoding sidecar %s: %v", e.Path, e.Err)
}

func (e *SidecarDecodeError) Unwrap() error { return e.Err }

// ToolExecutionError reports a metadata tool invocation that ran but exited non-zero.
type ToolExecutionError struct {
	ExitCode   int
	Diagnostic string
}

func (e *ToolExecutionError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("metadata tool exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("metadata tool exited with code %d: %s", e.ExitCode, e.Diagnostic)
}
