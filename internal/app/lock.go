package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrRunInProgress means another metafix process holds the lock for the same tree.
var ErrRunInProgress = errors.New("another metafix run is already processing this directory")

// RunLock is an advisory lock on one source tree, held for the length of a run.
// Lock files live under <base_dir>/locks, named after the tree's absolute path.
type RunLock struct {
	lock *flock.Flock
	path string
}

// LockPath returns the lock file used for source.
func LockPath(baseDir, source string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(source)))
	return filepath.Join(baseDir, "locks", id.String()+".lock")
}

// AcquireRunLock takes the lock for source without waiting.
func AcquireRunLock(baseDir, source string) (*RunLock, error) {
	path := LockPath(baseDir, source)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, source)
	}
	return &RunLock{lock: l, path: path}, nil
}

// Path returns the lock file location.
func (r *RunLock) Path() string {
	return r.path
}

// Release drops the lock. It is safe to call more than once.
func (r *RunLock) Release() error {
	if r == nil || r.lock == nil {
		return nil
	}
	err := r.lock.Unlock()
	r.lock = nil
	return err
}
