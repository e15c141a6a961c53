package fixer_test

import (
	"testing"

	"metafix/internal/fixer"
	"metafix/internal/testutil"
)

const root = "/src"

type harness struct {
	fsmgr  *testutil.MockFilesystemManager
	tool   *testutil.FakeTool
	logger *testutil.RecordingLogger
	svc    *fixer.Service
}

func newHarness(t *testing.T, journal fixer.Journal) *harness {
	t.Helper()
	h := &harness{
		fsmgr:  testutil.NewMockFilesystemManager(),
		tool:   testutil.NewFakeTool(),
		logger: testutil.NewRecordingLogger(),
	}
	h.fsmgr.AddDirectory(root)
	h.svc = fixer.NewService(h.fsmgr, h.tool, journal, h.logger, testutil.FixedClock(), testutil.NewStubIDGenerator(), fixer.DefaultSettings())
	return h
}

func (h *harness) add(path, content string) {
	h.fsmgr.AddFile(path, []byte(content))
}

func (h *harness) mustExist(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if !h.fsmgr.Exists(p) {
			t.Errorf("%s does not exist; files: %v", p, h.fsmgr.Files())
		}
	}
}

func (h *harness) mustNotExist(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if h.fsmgr.Exists(p) {
			t.Errorf("%s exists, want it gone", p)
		}
	}
}

func record(t *testing.T, path string) *fixer.SidecarRecord {
	t.Helper()
	rec, ok := fixer.NewSidecarRecord(path)
	if !ok {
		t.Fatalf("%s is not a sidecar name", path)
	}
	return rec
}
