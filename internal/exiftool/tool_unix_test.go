//go:build unix

package exiftool

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"metafix/internal/fixer"
)

// fakeTool mimics the tool's command line closely enough for the runner:
// version queries, format probes keyed on file name, and writes that fail
// for paths containing "readonly".
const fakeTool = `#!/bin/sh
echo "$@" >> "$(dirname "$0")/calls.log"
case "$1" in
  -ver) echo 13.10 ;;
  -s3)
    case "$3" in
      *jpeg-inside*) echo JPG ;;
      *broken*) echo "Error: Not a valid HEIC (looks more like a JPEG) - $3" >&2; exit 1 ;;
      *) echo HEIC ;;
    esac ;;
  *)
    for a; do last=$a; done
    case "$last" in
      *readonly*) echo "Error: File is read-only - $last" >&2; exit 1 ;;
    esac ;;
esac
`

func writeFakeTool(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "exiftool")
	if err := os.WriteFile(path, []byte(fakeTool), 0o755); err != nil {
		t.Fatalf("writing fake tool: %v", err)
	}
	return path
}

func calls(t *testing.T, toolPath string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(toolPath), "calls.log"))
	if err != nil {
		t.Fatalf("reading call log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestResolve(t *testing.T) {
	toolPath := writeFakeTool(t)

	t.Run("direct without lib dir", func(t *testing.T) {
		inv, err := Resolve(toolPath, "perl", "linux")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !inv.Direct() || inv.Program != toolPath {
			t.Errorf("Resolve() = %+v, want direct %s", inv, toolPath)
		}
	})

	t.Run("interpreter with lib dir", func(t *testing.T) {
		lib := filepath.Join(filepath.Dir(toolPath), "lib")
		if err := os.Mkdir(lib, 0o755); err != nil {
			t.Fatal(err)
		}
		defer os.Remove(lib)

		inv, err := Resolve(toolPath, "perl", "linux")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		want := []string{"-I", lib, toolPath}
		if inv.Program != "perl" || strings.Join(inv.Args, " ") != strings.Join(want, " ") {
			t.Errorf("Resolve() = %+v, want perl %v", inv, want)
		}

		inv, err = Resolve(toolPath, "perl", "windows")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !inv.Direct() {
			t.Errorf("Resolve() on windows = %+v, want direct", inv)
		}
	})

	t.Run("missing tool", func(t *testing.T) {
		_, err := Resolve(filepath.Join(t.TempDir(), "nope"), "perl", "linux")
		if !errors.Is(err, fixer.ErrToolNotFound) {
			t.Errorf("Resolve() error = %v, want ErrToolNotFound", err)
		}
	})
}

func TestToolVersion(t *testing.T) {
	tool := New(Invocation{Program: writeFakeTool(t)})
	v, err := tool.Version()
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v != "13.10" {
		t.Errorf("Version() = %q, want 13.10", v)
	}
}

func TestToolWrite(t *testing.T) {
	toolPath := writeFakeTool(t)
	tool := New(Invocation{Program: toolPath})

	err := tool.Write(fixer.WriteRequest{Path: "/photos/a.jpg", Timestamp: "2023:11:14 22:13:20"})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got := calls(t, toolPath)
	if len(got) != 1 || !strings.HasSuffix(got[0], "/photos/a.jpg") || !strings.Contains(got[0], "-DateTimeOriginal=2023:11:14 22:13:20") {
		t.Errorf("tool called with %q", got)
	}

	err = tool.Write(fixer.WriteRequest{Path: "/photos/readonly.jpg", Timestamp: "2023:11:14 22:13:20"})
	var execErr *fixer.ToolExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Write() error = %v, want ToolExecutionError", err)
	}
	if execErr.ExitCode != 1 || !strings.Contains(execErr.Diagnostic, "read-only") {
		t.Errorf("ToolExecutionError = %+v", execErr)
	}
}

func TestToolProbe(t *testing.T) {
	tool := New(Invocation{Program: writeFakeTool(t)})

	tests := []struct {
		path     string
		wantExt  string
		wantDiag string
	}{
		{path: "/photos/jpeg-inside.heic", wantExt: "JPG"},
		{path: "/photos/real.heic", wantExt: "HEIC"},
		{path: "/photos/broken.heic", wantDiag: "looks more like a JPEG"},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			res, err := tool.Probe(tt.path)
			if err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			if res.Extension != tt.wantExt {
				t.Errorf("Extension = %q, want %q", res.Extension, tt.wantExt)
			}
			if !strings.Contains(res.Diagnostic, tt.wantDiag) {
				t.Errorf("Diagnostic = %q, want it to contain %q", res.Diagnostic, tt.wantDiag)
			}
		})
	}
}

func TestToolMissingBinary(t *testing.T) {
	tool := New(Invocation{Program: filepath.Join(t.TempDir(), "exiftool")})

	if _, err := tool.Version(); !errors.Is(err, fixer.ErrToolNotFound) {
		t.Errorf("Version() error = %v, want ErrToolNotFound", err)
	}
	err := tool.Write(fixer.WriteRequest{Path: "/photos/a.jpg", Timestamp: "2023:11:14 22:13:20"})
	if !errors.Is(err, fixer.ErrToolNotFound) {
		t.Errorf("Write() error = %v, want ErrToolNotFound", err)
	}
}

func TestUseStayOpenProbeNeedsDirectTool(t *testing.T) {
	tool := New(Invocation{Program: "perl", Args: []string{"-I", "lib", "exiftool"}})
	if err := tool.UseStayOpenProbe(); err == nil {
		t.Error("UseStayOpenProbe() error = nil, want error for interpreted tool")
	}
	if err := tool.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
