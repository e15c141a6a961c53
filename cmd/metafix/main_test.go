package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type streamLine struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
}

// setupEnv points config and data at temp locations.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("METAFIX_HOME", home)
	t.Setenv("METAFIX_CONFIG_PATH", filepath.Join(home, "metafix.toml"))
	return home
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(runArgs(cmd, args))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func parseStream(t *testing.T, out string) []streamLine {
	t.Helper()
	var lines []streamLine
	for _, raw := range strings.Split(strings.TrimSpace(out), "\n") {
		var l streamLine
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			t.Fatalf("stdout line %q is not a stream record: %v", raw, err)
		}
		lines = append(lines, l)
	}
	return lines
}

func assertFinalMarker(t *testing.T, lines []streamLine) {
	t.Helper()
	if len(lines) == 0 {
		t.Fatal("empty stream")
	}
	last := lines[len(lines)-1]
	if last.Text != "PROCESSING_COMPLETE" || last.Tag != "final_marker" {
		t.Errorf("last record = %+v, want final marker", last)
	}
	for _, l := range lines[:len(lines)-1] {
		if l.Tag == "final_marker" {
			t.Errorf("final marker emitted more than once")
		}
	}
}

func TestRoot_WrongArgumentCount(t *testing.T) {
	setupEnv(t)

	out, _, err := execute(t, "/photos", "utc")
	if err == nil {
		t.Fatal("Execute() error = nil, want invalid arguments")
	}
	lines := parseStream(t, out)
	assertFinalMarker(t, lines)
	if lines[0].Tag != "error" || !strings.HasPrefix(lines[0].Text, "Usage:") {
		t.Errorf("first record = %+v, want usage error", lines[0])
	}
}

func TestRoot_MissingSourceDirectory(t *testing.T) {
	home := setupEnv(t)

	out, _, err := execute(t, filepath.Join(home, "missing"), "utc", filepath.Join(home, "exiftool"))
	if err == nil {
		t.Fatal("Execute() error = nil, want missing directory")
	}
	lines := parseStream(t, out)
	assertFinalMarker(t, lines)
	found := false
	for _, l := range lines {
		if l.Tag == "error" && strings.Contains(l.Text, "Cannot read the source directory") {
			found = true
		}
	}
	if !found {
		t.Errorf("no source directory error in stream: %+v", lines)
	}
}

func TestRoot_UnknownFlag(t *testing.T) {
	setupEnv(t)

	out, _, err := execute(t, "--bogus", "/photos", "utc", "/usr/bin/exiftool")
	if err == nil {
		t.Fatal("Execute() error = nil, want flag error")
	}
	assertFinalMarker(t, parseStream(t, out))
}

func TestRunArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"plain run", []string{"/photos", "utc", "/bin/exiftool"}, []string{"/photos", "utc", "/bin/exiftool"}},
		{"directory named status", []string{"status", "utc", "/bin/exiftool"}, []string{"--", "status", "utc", "/bin/exiftool"}},
		{"flags kept in front", []string{"history", "-v", "Pacific", "--config", "/etc/m.toml", "/bin/exiftool"},
			[]string{"-v", "--config", "/etc/m.toml", "--", "history", "Pacific", "/bin/exiftool"}},
		{"status subcommand", []string{"status", "/photos"}, []string{"status", "/photos"}},
		{"history with flags", []string{"history", "-n", "5", "--run", "20240101T000000Z"}, []string{"history", "-n", "5", "--run", "20240101T000000Z"}},
		{"config init", []string{"config", "init"}, []string{"config", "init"}},
		{"set-date", []string{"set-date", "a.jpg", "2021-07-04", "18:30:00", "/bin/exiftool"}, []string{"set-date", "a.jpg", "2021-07-04", "18:30:00", "/bin/exiftool"}},
	}
	root := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runArgs(root, tt.args); strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("runArgs(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestRoot_SourceNamedLikeSubcommand(t *testing.T) {
	home := setupEnv(t)
	t.Chdir(home)

	out, _, err := execute(t, "status", "utc", filepath.Join(home, "exiftool"))
	if err == nil {
		t.Fatal("Execute() error = nil, want missing directory")
	}
	lines := parseStream(t, out)
	assertFinalMarker(t, lines)
	found := false
	for _, l := range lines {
		if l.Tag == "error" && strings.Contains(l.Text, "Cannot read the source directory") {
			found = true
		}
	}
	if !found {
		t.Errorf("run form was not dispatched to the run command: %+v", lines)
	}
}

func TestRoot_HelpDescribesEmptyTree(t *testing.T) {
	long := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{}).Long
	if !strings.Contains(long, "no sidecar files at all, nothing is moved") {
		t.Errorf("Long help does not describe a tree without sidecars:\n%s", long)
	}
}

func TestSetDate_WrongArgumentCount(t *testing.T) {
	setupEnv(t)

	out, _, err := execute(t, "set-date", "a.jpg", "2021-07-04")
	if err == nil {
		t.Fatal("Execute() error = nil, want invalid arguments")
	}
	lines := parseStream(t, out)
	assertFinalMarker(t, lines)
	if !strings.Contains(lines[0].Text, "set-date") {
		t.Errorf("first record = %+v, want set-date usage", lines[0])
	}
}

func TestHistory_Empty(t *testing.T) {
	setupEnv(t)

	out, _, err := execute(t, "history")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "No runs recorded yet.") {
		t.Errorf("history output = %q", out)
	}
}

func TestStatus(t *testing.T) {
	setupEnv(t)
	root := t.TempDir()
	files := map[string]string{
		"a.jpg":                            "jpeg",
		"a.jpg.supplemental-metadata.json": `{"photoTakenTime":{"timestamp":"1700000000"}}`,
		"b.png":                            "png",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, _, err := execute(t, "status", root)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{"a.jpg.supplemental-metadata.json", "exact", "1 of 1 sidecars", "would be quarantined", "b.png"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output lacks %q:\n%s", want, out)
		}
	}
}

func TestConfigInitAndList(t *testing.T) {
	home := setupEnv(t)

	out, _, err := execute(t, "config", "init")
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(out, filepath.Join(home, "metafix.toml")) {
		t.Errorf("config init output = %q", out)
	}
	if _, _, err := execute(t, "config", "init"); err == nil {
		t.Error("second config init succeeded, want refusal to overwrite")
	}

	out, _, err = execute(t, "config", "list")
	if err != nil {
		t.Fatalf("config list error = %v", err)
	}
	for _, want := range []string{"[folders]", `quarantine = "NO_METADATA_FOUND"`, "[journal]"} {
		if !strings.Contains(out, want) {
			t.Errorf("config list lacks %q:\n%s", want, out)
		}
	}
}
