package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// OwnerFileName marks the data directory as owned by one running process.
const OwnerFileName = ".moss.owner"

// DefaultOwnerWait is how long New waits for another process to release
// the data directory.
const DefaultOwnerWait = 2 * time.Second

// ErrDirInUse is returned when another runtime owns the data directory.
var ErrDirInUse = errors.New("data directory is in use by another moss process")

// claimDir takes exclusive ownership of dir. A runtime rewrites whole
// records from its in-memory state, so at most one may run per directory.
// An owner file left by a process that no longer exists is broken.
func claimDir(ctx context.Context, dir string, wait time.Duration) (func() error, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(dir, OwnerFileName)
	deadline := time.Now().Add(wait)

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() error {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to release data directory: %w", err)
				}
				return nil
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to claim data directory: %w", err)
		}

		pid, alive := ownerAlive(path)
		if !alive {
			_ = os.Remove(path)
			continue
		}

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s (pid %d)", ErrDirInUse, dir, pid)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// ownerAlive reads the pid in the owner file and reports whether that
// process still runs. An unreadable file counts as alive so it is never
// broken by mistake; a half-written one is retried.
func ownerAlive(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, false
	}
	if err != nil {
		return 0, true
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		// Still being written.
		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) < time.Second {
			return 0, true
		}
		return 0, false
	}
	if pid == os.Getpid() {
		return pid, true
	}
	return pid, processAlive(pid)
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return !errors.Is(err, os.ErrProcessDone) && !errors.Is(err, syscall.ESRCH)
}
