package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTree creates files under root from a map of slash-separated relative
// paths to contents and returns root.
func WriteTree(t *testing.T, root string, files map[string]string) string {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return root
}

// SidecarJSON returns a minimal export sidecar document with the given epoch timestamp.
func SidecarJSON(timestamp string) string {
	return `{"title":"photo","photoTakenTime":{"timestamp":"` + timestamp + `","formatted":""}}`
}
