package checkpoint

import (
	"fmt"
	"os"
	"syscall"

	"github.com/a2a-aptos/bidagent/internal/errors"
)

// ErrLocked is returned when another process holds the checkpoint lock.
var ErrLocked = errors.New("checkpoint is locked by another process")

// FileLock provides cross-process mutual exclusion using flock(2).
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a FileLock on the file at path. The file is created
// on first use.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// TryLock acquires an exclusive lock without blocking. It returns ErrLocked
// when the lock is held elsewhere.
func (fl *FileLock) TryLock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return fmt.Errorf("%w: %s", ErrLocked, fl.path)
		}
		return fmt.Errorf("flock: %w", err)
	}

	fl.file = f
	return nil
}

// Unlock releases the lock and closes the lock file.
func (fl *FileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = fl.file.Close()
		fl.file = nil
		return fmt.Errorf("funlock: %w", err)
	}

	err := fl.file.Close()
	fl.file = nil
	return err
}
