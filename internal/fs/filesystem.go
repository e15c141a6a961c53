package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"metafix/internal/fixer"
)

// renameFunc is swapped in tests to simulate cross-device moves.
var renameFunc = os.Rename

// OSFilesystemManager is the real filesystem implementation of fixer.FilesystemManager.
// Names matched by its ignore patterns are invisible to FindFiles and ListDir.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher
}

// NewOSFilesystemManager creates a filesystem manager that hides files matching
// patterns in addition to the built-in defaults.
func NewOSFilesystemManager(patterns []string) *OSFilesystemManager {
	all := append(append([]string{}, defaultIgnorePatterns...), patterns...)
	return &OSFilesystemManager{ignore: NewIgnoreMatcher(all)}
}

// FindFiles walks root and returns the regular files under it, sorted.
// Errors below the root skip only the offending entry. Patterns listed in
// root's IgnoreFileName apply to this walk on top of the configured ones; an
// unreadable ignore file counts as empty.
func (m *OSFilesystemManager) FindFiles(root string, skipDir func(name string) bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	ignore := m.ignore
	if extra, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName)); err == nil {
		ignore = ignore.With(extra)
	}

	var paths []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if p == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			rel = d.Name()
		}
		if d.IsDir() {
			if (skipDir != nil && skipDir(d.Name())) || ignore.Match(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ignore.Match(rel) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// ListDir returns the names of the regular files directly inside dir, sorted.
func (m *OSFilesystemManager) ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || m.ignore.Match(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (m *OSFilesystemManager) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (m *OSFilesystemManager) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (m *OSFilesystemManager) AppendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return f.Close()
}

func (m *OSFilesystemManager) EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return nil
}

// Move renames src to dst. An existing dst is never replaced. Moves across
// filesystems are refused rather than emulated with copy and delete.
func (m *OSFilesystemManager) Move(src, dst string) error {
	if _, err := os.Lstat(src); err != nil {
		return fmt.Errorf("move %s: %w", src, err)
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, fs.ErrExist)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", dst, err)
	}

	if err := renameFunc(src, dst); err != nil {
		if isCrossDevice(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return nil
}

// CrossDeviceError reports a move between filesystems.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cannot move %s to %s across filesystems: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// Compile-time check that OSFilesystemManager implements fixer.FilesystemManager
var _ fixer.FilesystemManager = (*OSFilesystemManager)(nil)
