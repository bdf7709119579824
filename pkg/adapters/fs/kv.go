// Package fs implements core.KV on top of a plain directory: one file per
// key, written atomically.
package fs

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/moss/pkg/core"
)

// Config holds the configuration for the filesystem KV.
type Config struct {
	Path string
	// Ext is appended to every key to form the file name. Defaults to ".json".
	Ext    string
	Logger *slog.Logger
	// Debounce collapses bursts of filesystem events for one key.
	Debounce time.Duration
	// LockTimeout bounds the wait for the cross-process write lock.
	LockTimeout time.Duration
	// ErrorHandler receives watcher failures. Optional.
	ErrorHandler func(error)
}

// absent marks a key this process removed.
var absent [32]byte

// KV implements core.KV with one file per key under Config.Path.
type KV struct {
	Path   string
	config Config

	mu            sync.RWMutex
	own           map[string][32]byte // digest of the last content this process wrote
	watcherActive bool
	lastWrite     *time.Time
	writes        int
}

// New creates the data directory if needed and returns a KV over it.
func New(config Config) (*KV, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("%w: fs path is required", core.ErrInvalidConfig)
	}
	if config.Ext == "" {
		config.Ext = ".json"
	}
	if !strings.HasPrefix(config.Ext, ".") {
		config.Ext = "." + config.Ext
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Debounce <= 0 {
		config.Debounce = 50 * time.Millisecond
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = 5 * time.Second
	}

	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if n := sweepTemp(config.Path, time.Now()); n > 0 {
		config.Logger.Debug("removed stale temp files", "count", n)
	}

	return &KV{
		Path:   config.Path,
		config: config,
		own:    make(map[string][32]byte),
	}, nil
}

func (k *KV) file(key string) string {
	return filepath.Join(k.Path, key+k.config.Ext)
}

// keyOf maps a file name back to its key. ok is false for foreign files.
func (k *KV) keyOf(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, TempFilePrefix) || strings.HasPrefix(base, ".") {
		return "", false
	}
	if !strings.HasSuffix(base, k.config.Ext) {
		return "", false
	}
	return strings.TrimSuffix(base, k.config.Ext), true
}

// Get implements core.KV.
func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(k.file(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set implements core.KV.
func (k *KV) Set(ctx context.Context, key, value string) error {
	unlock, err := acquireLock(ctx, filepath.Join(k.Path, LockFileName), k.config.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if err := writeFileAtomic(k.file(key), []byte(value), 0644); err != nil {
		return err
	}

	now := time.Now()
	k.mu.Lock()
	k.own[key] = sha256.Sum256([]byte(value))
	k.lastWrite = &now
	k.writes++
	k.mu.Unlock()

	k.config.Logger.Debug("record written", "key", key, "bytes", len(value))
	return nil
}

// Clear implements core.KV. It removes every record file in the directory
// and leaves foreign files alone.
func (k *KV) Clear(ctx context.Context) error {
	unlock, err := acquireLock(ctx, filepath.Join(k.Path, LockFileName), k.config.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	keys, err := k.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := os.Remove(k.file(key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}

	k.mu.Lock()
	for _, key := range keys {
		k.own[key] = absent
	}
	k.mu.Unlock()

	k.config.Logger.Debug("records cleared", "count", len(keys))
	return nil
}

// Keys lists the keys currently stored.
func (k *KV) Keys() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(k.Path), "*"+k.config.Ext, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if key, ok := k.keyOf(m); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// isOwnWrite reports whether the current content of key is what this
// process last wrote.
func (k *KV) isOwnWrite(key string) bool {
	k.mu.RLock()
	sum, ok := k.own[key]
	k.mu.RUnlock()
	if !ok {
		return false
	}
	data, err := os.ReadFile(k.file(key))
	if os.IsNotExist(err) {
		return sum == absent
	}
	if err != nil {
		return false
	}
	return sha256.Sum256(data) == sum
}

var _ core.KV = (*KV)(nil)
var _ core.Watchable = (*KV)(nil)
