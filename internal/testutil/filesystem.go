package testutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"metafix/internal/fixer"
)

// MockFilesystemManager is an in-memory filesystem for testing.
// Paths are used as given; callers should pass clean absolute paths.
type MockFilesystemManager struct {
	mu        sync.Mutex
	files     map[string][]byte
	dirs      map[string]bool
	moveFails map[string]error
	// Moves records every successful move as "src -> dst".
	Moves []string
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:     make(map[string][]byte),
		dirs:      make(map[string]bool),
		moveFails: make(map[string]error),
	}
}

// AddFile adds a file and its parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addDirLocked(filepath.Dir(path))
	m.files[path] = content
}

// AddDirectory adds a directory and its parents.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addDirLocked(path)
}

// FailMove makes every move of src fail with err.
func (m *MockFilesystemManager) FailMove(src string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moveFails[src] = err
}

// Remove deletes a file.
func (m *MockFilesystemManager) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// Content returns a file's bytes.
func (m *MockFilesystemManager) Content(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	return b, ok
}

// Files returns every file path, sorted.
func (m *MockFilesystemManager) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m *MockFilesystemManager) addDirLocked(path string) {
	for {
		m.dirs[path] = true
		parent := filepath.Dir(path)
		if parent == path {
			return
		}
		path = parent
	}
}

func (m *MockFilesystemManager) FindFiles(root string, skipDir func(name string) bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirs[root] {
		return nil, fmt.Errorf("stat %s: %w", root, fs.ErrNotExist)
	}

	var paths []string
	for p := range m.files {
		rel, err := filepath.Rel(root, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		skipped := false
		for _, dir := range parts[:len(parts)-1] {
			if skipDir != nil && skipDir(dir) {
				skipped = true
				break
			}
		}
		if !skipped {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MockFilesystemManager) ListDir(dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirs[dir] {
		return nil, fmt.Errorf("open %s: %w", dir, fs.ErrNotExist)
	}
	var names []string
	for p := range m.files {
		if filepath.Dir(p) == dir {
			names = append(names, filepath.Base(p))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockFilesystemManager) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok || m.dirs[path]
}

func (m *MockFilesystemManager) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	return b, nil
}

func (m *MockFilesystemManager) AppendFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirs[filepath.Dir(path)] {
		return fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	m.files[path] = append(m.files[path], data...)
	return nil
}

func (m *MockFilesystemManager) EnsureDir(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; ok {
		return fmt.Errorf("mkdir %s: not a directory", path)
	}
	m.addDirLocked(path)
	return nil
}

func (m *MockFilesystemManager) Move(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.moveFails[src]; ok {
		return fmt.Errorf("rename %s: %w", src, err)
	}
	b, ok := m.files[src]
	if !ok {
		return fmt.Errorf("rename %s: %w", src, fs.ErrNotExist)
	}
	if _, taken := m.files[dst]; taken || m.dirs[dst] {
		return fmt.Errorf("rename %s to %s: %w", src, dst, fs.ErrExist)
	}
	if !m.dirs[filepath.Dir(dst)] {
		return fmt.Errorf("rename %s to %s: %w", src, dst, fs.ErrNotExist)
	}
	delete(m.files, src)
	m.files[dst] = b
	m.Moves = append(m.Moves, src+" -> "+dst)
	return nil
}

// Compile-time check
var _ fixer.FilesystemManager = (*MockFilesystemManager)(nil)
