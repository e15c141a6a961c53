package fixer_test

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"metafix/internal/fixer"
	"metafix/internal/testutil"
)

func newOrganizer(fsmgr fixer.FilesystemManager, logger fixer.Logger) *fixer.TreeOrganizer {
	return fixer.NewTreeOrganizer(fsmgr, fixer.DefaultMediaTypes(), fixer.DefaultOutputFolders(), logger, testutil.FixedClock())
}

func TestTreeOrganizer_QuarantineOrphans(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddFile("/src/a.jpg", nil)
	fsmgr.AddFile("/src/a.jpg.supplemental-metadata.json", nil)
	fsmgr.AddFile("/src/b.jpg", nil)
	fsmgr.AddFile("/src/sub/c.png", nil)
	fsmgr.AddFile("/src/sub/notes.txt", nil)

	res, err := newOrganizer(fsmgr, fixer.NewNopLogger()).QuarantineOrphans("/src")
	if err != nil {
		t.Fatalf("QuarantineOrphans() error = %v", err)
	}
	if len(res.Moved) != 2 {
		t.Fatalf("Moved = %v, want 2 files", res.Moved)
	}

	for _, p := range []string{"/src/a.jpg", "/src/NO_METADATA_FOUND/b.jpg", "/src/NO_METADATA_FOUND/c.png", "/src/sub/notes.txt"} {
		if !fsmgr.Exists(p) {
			t.Errorf("%s missing; files: %v", p, fsmgr.Files())
		}
	}

	manifest, ok := fsmgr.Content("/src/NO_METADATA_FOUND/" + fixer.ManifestName)
	if !ok {
		t.Fatal("manifest not written")
	}
	text := string(manifest)
	if !strings.HasPrefix(text, "NO_METADATA_FOUND\n") {
		t.Errorf("manifest header missing:\n%s", text)
	}
	for _, name := range []string{"b.jpg", "c.png"} {
		if !strings.Contains(text, "  "+name+"\n") {
			t.Errorf("manifest does not list %s:\n%s", name, text)
		}
	}
}

func TestTreeOrganizer_SidecarKeys(t *testing.T) {
	tests := []struct {
		name    string
		sidecar string
		media   string
		kept    bool
	}{
		{"sidecar without extension keeps every extension", "/src/IMG_1.supplemental-metadata.json", "/src/IMG_1.MOV", true},
		{"sidecar with extension keeps live photo pair", "/src/IMG_2.HEIC.supplemental-metadata.json", "/src/IMG_2.mov", true},
		{"letter case is ignored", "/src/img_3.jpg.supplemental-metadata.json", "/src/IMG_3.JPG", true},
		{"indexed sidecar keeps indexed copy", "/src/IMG_4.jpg.supplemental-metadata(1).json", "/src/IMG_4(1).jpg", true},
		{"sidecar in another directory", "/src/sub/IMG_5.jpg.supplemental-metadata.json", "/src/IMG_5.jpg", false},
		{"truncated stem", "/src/IMG_6.jpg.supplemental-me.json", "/src/IMG_6.jpg", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsmgr := testutil.NewMockFilesystemManager()
			fsmgr.AddFile(tt.sidecar, nil)
			fsmgr.AddFile(tt.media, nil)

			orphans, err := newOrganizer(fsmgr, fixer.NewNopLogger()).Orphans("/src")
			if err != nil {
				t.Fatalf("Orphans() error = %v", err)
			}
			kept := len(orphans) == 0
			if kept != tt.kept {
				t.Errorf("kept = %v, want %v (orphans %v)", kept, tt.kept, orphans)
			}
		})
	}
}

func TestTreeOrganizer_DeduplicatesNames(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddFile("/src/x.jpg", []byte("one"))
	fsmgr.AddFile("/src/sub/x.jpg", []byte("two"))
	fsmgr.AddFile("/src/y.jpg.supplemental-metadata.json", []byte("one"))
	fsmgr.AddFile("/src/sub/y.jpg.supplemental-metadata.json", []byte("two"))

	org := newOrganizer(fsmgr, fixer.NewNopLogger())
	if _, err := org.QuarantineOrphans("/src"); err != nil {
		t.Fatalf("QuarantineOrphans() error = %v", err)
	}
	if _, err := org.ArchiveSidecars("/src"); err != nil {
		t.Fatalf("ArchiveSidecars() error = %v", err)
	}

	for _, p := range []string{
		"/src/NO_METADATA_FOUND/x.jpg",
		"/src/NO_METADATA_FOUND/x_1.jpg",
		"/src/JSON_METADATA/y.jpg.supplemental-metadata.json",
		"/src/JSON_METADATA/y.jpg_1.supplemental-metadata.json",
	} {
		if !fsmgr.Exists(p) {
			t.Errorf("%s missing; files: %v", p, fsmgr.Files())
		}
	}
}

func TestTreeOrganizer_Idempotent(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddFile("/src/a.jpg", nil)
	fsmgr.AddFile("/src/a.jpg.supplemental-metadata.json", nil)
	fsmgr.AddFile("/src/sub/a.jpg", nil)
	fsmgr.AddFile("/src/sub/a.jpg.supplemental-metadata.json", nil)
	fsmgr.AddFile("/src/orphan.png", nil)

	org := newOrganizer(fsmgr, fixer.NewNopLogger())
	for i := 0; i < 2; i++ {
		if _, err := org.QuarantineOrphans("/src"); err != nil {
			t.Fatalf("QuarantineOrphans() error = %v", err)
		}
		if _, err := org.ArchiveSidecars("/src"); err != nil {
			t.Fatalf("ArchiveSidecars() error = %v", err)
		}
	}
	first := len(fsmgr.Moves)
	if first != 3 {
		t.Fatalf("Moves = %v, want 3", fsmgr.Moves)
	}

	q, err := org.QuarantineOrphans("/src")
	if err != nil {
		t.Fatalf("QuarantineOrphans() error = %v", err)
	}
	a, err := org.ArchiveSidecars("/src")
	if err != nil {
		t.Fatalf("ArchiveSidecars() error = %v", err)
	}
	if len(q.Moved) != 0 || len(a.Moved) != 0 || len(fsmgr.Moves) != first {
		t.Errorf("rerun moved files: %v", fsmgr.Moves[first:])
	}
	if !fsmgr.Exists("/src/a.jpg") || !fsmgr.Exists("/src/sub/a.jpg") {
		t.Errorf("media with archived sidecars was moved: %v", fsmgr.Files())
	}
}

func TestTreeOrganizer_ArchivedCounter(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddFile("/src/JSON_METADATA/IMG_0001.supplemental-metadata.json", nil)
	fsmgr.AddFile("/src/JSON_METADATA/PXL_2023_20240101.supplemental-metadata.json", nil)
	fsmgr.AddFile("/src/JSON_METADATA/b.jpg.supplemental-metadata.json", nil)
	fsmgr.AddFile("/src/JSON_METADATA/b.jpg_1.supplemental-metadata.json", nil)
	fsmgr.AddFile("/src/IMG.jpg", nil)
	fsmgr.AddFile("/src/PXL_2023.jpg", nil)
	fsmgr.AddFile("/src/IMG_0001.jpg", nil)
	fsmgr.AddFile("/src/sub/b.jpg", nil)

	orphans, err := newOrganizer(fsmgr, fixer.NewNopLogger()).Orphans("/src")
	if err != nil {
		t.Fatalf("Orphans() error = %v", err)
	}
	want := []string{"/src/IMG.jpg", "/src/PXL_2023.jpg"}
	if strings.Join(orphans, ",") != strings.Join(want, ",") {
		t.Errorf("Orphans() = %v, want %v", orphans, want)
	}
}

func TestTreeOrganizer_MoveFailures(t *testing.T) {
	t.Run("vanished file is skipped silently", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		fsmgr.AddFile("/src/gone.jpg", nil)
		fsmgr.FailMove("/src/gone.jpg", fs.ErrNotExist)
		logger := testutil.NewRecordingLogger()

		res, err := newOrganizer(fsmgr, logger).QuarantineOrphans("/src")
		if err != nil {
			t.Fatalf("QuarantineOrphans() error = %v", err)
		}
		if res.Failed != 0 || len(res.Moved) != 0 {
			t.Errorf("result = %+v, want nothing moved or failed", res)
		}
		if len(logger.Entries("error")) != 0 {
			t.Errorf("errors logged: %v", logger.Entries("error"))
		}
		if fsmgr.Exists("/src/NO_METADATA_FOUND/" + fixer.ManifestName) {
			t.Error("manifest written with nothing moved")
		}
	})

	t.Run("other failures are logged and counted", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		fsmgr.AddFile("/src/locked.jpg", nil)
		fsmgr.AddFile("/src/free.jpg", nil)
		fsmgr.FailMove("/src/locked.jpg", errors.New("permission denied"))
		logger := testutil.NewRecordingLogger()

		res, err := newOrganizer(fsmgr, logger).QuarantineOrphans("/src")
		if err != nil {
			t.Fatalf("QuarantineOrphans() error = %v", err)
		}
		if res.Failed != 1 || len(res.Moved) != 1 {
			t.Errorf("result = %+v, want one moved and one failed", res)
		}
		if !logger.Contains("error", "locked.jpg") {
			t.Error("failure not logged")
		}
	})
}

func TestTreeOrganizer_SkipsOutputFolders(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddFile("/src/NO_METADATA_FOUND/old.jpg", nil)
	fsmgr.AddFile("/src/JSON_METADATA/old.jpg.supplemental-metadata.json", nil)

	org := newOrganizer(fsmgr, fixer.NewNopLogger())
	if _, err := org.QuarantineOrphans("/src"); err != nil {
		t.Fatalf("QuarantineOrphans() error = %v", err)
	}
	if _, err := org.ArchiveSidecars("/src"); err != nil {
		t.Fatalf("ArchiveSidecars() error = %v", err)
	}
	if len(fsmgr.Moves) != 0 {
		t.Errorf("Moves = %v, want none", fsmgr.Moves)
	}
}
