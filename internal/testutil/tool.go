package testutil

import (
	"sync"

	"metafix/internal/fixer"
)

// FakeTool is an in-process stand-in for the metadata tool.
type FakeTool struct {
	mu sync.Mutex
	// Writes records every request passed to Write.
	Writes []fixer.WriteRequest
	// Probes maps a file path to the probe result reported for it.
	Probes map[string]fixer.ProbeResult
	// WriteErrs maps a file path to the error Write returns for it.
	WriteErrs map[string]error
	// Err, when set, is returned by every call.
	Err error
	// VersionString is returned by Version.
	VersionString string
	probed        []string
}

func NewFakeTool() *FakeTool {
	return &FakeTool{
		Probes:        make(map[string]fixer.ProbeResult),
		WriteErrs:     make(map[string]error),
		VersionString: "13.00",
	}
}

func (t *FakeTool) Write(req fixer.WriteRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	if err, ok := t.WriteErrs[req.Path]; ok {
		return err
	}
	t.Writes = append(t.Writes, req)
	return nil
}

func (t *FakeTool) Probe(path string) (fixer.ProbeResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.probed = append(t.probed, path)
	if t.Err != nil {
		return fixer.ProbeResult{}, t.Err
	}
	return t.Probes[path], nil
}

func (t *FakeTool) Version() (string, error) {
	if t.Err != nil {
		return "", t.Err
	}
	return t.VersionString, nil
}

// Probed returns the paths passed to Probe, in call order.
func (t *FakeTool) Probed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.probed...)
}

// WrittenPaths returns the paths of successful writes, in call order.
func (t *FakeTool) WrittenPaths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	paths := make([]string, len(t.Writes))
	for i, w := range t.Writes {
		paths[i] = w.Path
	}
	return paths
}

var _ fixer.MetadataTool = (*FakeTool)(nil)
