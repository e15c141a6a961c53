package exiftool

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	"metafix/internal/fixer"
)

type prober interface {
	Probe(path string) (fixer.ProbeResult, error)
	Close() error
}

// Tool implements fixer.MetadataTool by running one process per call.
// Format probes can instead go through a long-lived stay-open process.
type Tool struct {
	inv    Invocation
	prober prober
}

// New creates a Tool for a resolved invocation.
func New(inv Invocation) *Tool {
	return &Tool{inv: inv}
}

// UseStayOpenProbe routes format probes through a persistent tool process.
// Only a directly executable tool can be kept open.
func (t *Tool) UseStayOpenProbe() error {
	if !t.inv.Direct() {
		return fmt.Errorf("stay-open probe needs a directly executable tool, have %s", t.inv)
	}
	p, err := newStayOpenProber(t.inv.Program)
	if err != nil {
		return fmt.Errorf("starting stay-open tool: %w", err)
	}
	t.prober = p
	return nil
}

// Invocation returns how the tool is launched.
func (t *Tool) Invocation() Invocation {
	return t.inv
}

// Version runs the tool's version query.
func (t *Tool) Version() (string, error) {
	out, _, err := t.run("-ver")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Write applies one metadata write in place.
func (t *Tool) Write(req fixer.WriteRequest) error {
	_, _, err := t.run(WriteArgs(req)...)
	return err
}

// Probe asks the tool for the file's content type. A tool that exits
// non-zero while probing still yields a result carrying its diagnostic.
func (t *Tool) Probe(path string) (fixer.ProbeResult, error) {
	if t.prober != nil {
		return t.prober.Probe(path)
	}

	out, stderr, err := t.run("-s3", "-FileTypeExtension", path)
	var execErr *fixer.ToolExecutionError
	if errors.As(err, &execErr) {
		return fixer.ProbeResult{Diagnostic: execErr.Diagnostic}, nil
	}
	if err != nil {
		return fixer.ProbeResult{}, err
	}
	return fixer.ProbeResult{
		Extension:  strings.TrimSpace(out),
		Diagnostic: strings.TrimSpace(stderr),
	}, nil
}

// Close stops the stay-open process, if any.
func (t *Tool) Close() error {
	if t.prober == nil {
		return nil
	}
	err := t.prober.Close()
	t.prober = nil
	return err
}

func (t *Tool) run(args ...string) (string, string, error) {
	cmd := t.inv.Command(args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), stderr.String(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = strings.TrimSpace(stdout.String())
		}
		return stdout.String(), stderr.String(), &fixer.ToolExecutionError{ExitCode: exitErr.ExitCode(), Diagnostic: diag}
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return "", "", fmt.Errorf("%w: %s: %v", fixer.ErrToolNotFound, t.inv, err)
	}
	return "", "", fmt.Errorf("launching %s: %w", t.inv, err)
}

var _ fixer.MetadataTool = (*Tool)(nil)
