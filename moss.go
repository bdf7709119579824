package moss

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/moss/internal/platform"
	"github.com/aretw0/moss/pkg/core"
)

// --- Types ---

// Runtime is a wired service plus the adapters it owns.
type Runtime = platform.Runtime

// Config is the flat configuration read from MOSS_* variables.
type Config = platform.Config

// ErrDirInUse is returned by New when another process owns the data directory.
var ErrDirInUse = platform.ErrDirInUse

// --- Configuration ---

// Option defines a functional option for configuring moss.
type Option = platform.Option

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore selects the storage adapter by name ("fs", "sqlite", "memory").
func WithStore(name string) Option {
	return platform.WithStore(name)
}

// WithCodec selects the record encoding ("json" or "yaml").
func WithCodec(name string) Option {
	return platform.WithCodec(name)
}

// WithKV injects a custom storage adapter.
func WithKV(kv core.KV) Option {
	return platform.WithKV(kv)
}

// WithRemote injects a custom remote.
func WithRemote(remote core.Remote) Option {
	return platform.WithRemote(remote)
}

// WithCouch pushes batches to the CouchDB database db at url.
func WithCouch(url, db string) Option {
	return platform.WithCouch(url, db)
}

// WithStubDelay sets the latency of the stub remote.
func WithStubDelay(d time.Duration) Option {
	return platform.WithStubDelay(d)
}

// WithOnline sets the connectivity mode ("auto", "true", "false").
func WithOnline(mode string) Option {
	return platform.WithOnline(mode)
}

// WithConnectivity injects a connectivity source.
func WithConnectivity(src core.ConnectivitySource) Option {
	return platform.WithConnectivity(src)
}

// WithEventBuffer allows specifying the size of the event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithManualSync disables the reconcile-on-reconnect trigger.
func WithManualSync(manual bool) Option {
	return platform.WithManualSync(manual)
}

// WithWatch reloads the state when another tool rewrites the record files.
func WithWatch(enabled bool) Option {
	return platform.WithWatch(enabled)
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithOwnerWait bounds how long New waits for another process to release
// the data directory.
func WithOwnerWait(d time.Duration) Option {
	return platform.WithOwnerWait(d)
}

// --- Factory ---

// New creates a moss runtime rooted at dir.
func New(ctx context.Context, dir string, opts ...Option) (*Runtime, error) {
	return platform.New(ctx, dir, opts...)
}

// LoadConfig reads MOSS_* variables, from .env when present.
func LoadConfig() (Config, error) {
	return platform.LoadConfig()
}

// --- Safety & Utils ---

// ResolveDataDir determines the actual data directory based on safety rules.
func ResolveDataDir(userPath string, forceTemp bool) string {
	return platform.ResolveDataDir(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindDataDir looks upwards from startDir for a .moss data directory.
func FindDataDir(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
