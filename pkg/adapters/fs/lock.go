package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// LockFileName is the cross-process lock taken around writes.
const LockFileName = ".moss.lock"

// ErrLockTimeout is returned when the data dir lock cannot be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for store lock")

// staleLockAge is how old a lock file must be before it is considered
// abandoned by a crashed process and broken.
const staleLockAge = 30 * time.Second

// acquireLock takes a file-based lock with O_EXCL. It spins until the lock
// is free, ctx ends or timeout elapses.
func acquireLock(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	deadline := time.Now().Add(timeout)

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() {
				os.Remove(path)
			}, nil
		}

		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			_ = os.Remove(path)
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}
