package fixer

// FilesystemManager is the file access the reconciliation engine needs.
// Implementations hide ignored names (platform junk such as AppleDouble files)
// from every listing.
type FilesystemManager interface {
	// FindFiles walks root recursively and returns the paths of regular files, sorted.
	// Directories whose base name makes skipDir return true are not descended into.
	// Only an inaccessible root is an error; unreadable entries below it are skipped.
	FindFiles(root string, skipDir func(name string) bool) ([]string, error)

	// ListDir returns the names of the regular files directly inside dir, sorted.
	ListDir(dir string) ([]string, error)

	// Exists reports whether path names an existing entry.
	Exists(path string) bool

	ReadFile(path string) ([]byte, error)

	// AppendFile appends data to path, creating it if needed.
	AppendFile(path string, data []byte) error

	EnsureDir(path string) error

	// Move renames src to dst without ever replacing an existing dst.
	// It returns an error wrapping fs.ErrExist if dst exists and one wrapping
	// fs.ErrNotExist if src is gone.
	Move(src, dst string) error
}
