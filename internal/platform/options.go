package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/moss/pkg/core"
)

// Store adapter names.
const (
	StoreFS     = "fs"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Remote adapter names.
const (
	RemoteStub  = "stub"
	RemoteCouch = "couch"
)

// Online modes. OnlineAuto probes the network; the others pin the state.
const (
	OnlineAuto  = "auto"
	OnlineTrue  = "true"
	OnlineFalse = "false"
)

// options holds the internal configuration for a moss runtime.
type options struct {
	logger       *slog.Logger
	store        string
	codec        string
	kv           core.KV
	remoteName   string
	remote       core.Remote
	couchURL     string
	couchDB      string
	stubDelay    time.Duration
	online       string
	connectivity core.ConnectivitySource
	probeEvery   time.Duration
	eventBuffer  int
	manualSync   bool
	watch        bool
	devSafety    bool
	forceTemp    bool
	ownerWait    time.Duration
	clock        func() time.Time
}

// Option defines a functional option for configuring moss.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		store:      StoreFS,
		codec:      "json",
		remoteName: RemoteStub,
		stubDelay:  -1,
		online:     OnlineAuto,
		devSafety:  true,
		ownerWait:  DefaultOwnerWait,
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore selects the storage adapter by name ("fs", "sqlite", "memory").
// Defaults to "fs".
func WithStore(name string) Option {
	return func(o *options) {
		o.store = name
	}
}

// WithCodec selects the record encoding ("json" or "yaml").
func WithCodec(name string) Option {
	return func(o *options) {
		o.codec = name
	}
}

// WithKV injects a custom storage adapter. WithStore is ignored.
func WithKV(kv core.KV) Option {
	return func(o *options) {
		o.kv = kv
	}
}

// WithRemoteName selects the remote adapter by name ("stub" or "couch").
func WithRemoteName(name string) Option {
	return func(o *options) {
		o.remoteName = name
	}
}

// WithRemote injects a custom remote. WithRemoteName is ignored.
func WithRemote(remote core.Remote) Option {
	return func(o *options) {
		o.remote = remote
	}
}

// WithCouch configures the CouchDB remote and selects it.
func WithCouch(url, db string) Option {
	return func(o *options) {
		o.remoteName = RemoteCouch
		o.couchURL = url
		o.couchDB = db
	}
}

// WithStubDelay sets the latency of the stub remote. A negative value keeps
// the default.
func WithStubDelay(d time.Duration) Option {
	return func(o *options) {
		o.stubDelay = d
	}
}

// WithOnline sets the connectivity mode: "auto" probes the network,
// "true" and "false" pin it.
func WithOnline(mode string) Option {
	return func(o *options) {
		o.online = mode
	}
}

// WithConnectivity injects a connectivity source. WithOnline is ignored.
func WithConnectivity(src core.ConnectivitySource) Option {
	return func(o *options) {
		o.connectivity = src
	}
}

// WithProbeInterval sets how often the network is probed in "auto" mode.
func WithProbeInterval(d time.Duration) Option {
	return func(o *options) {
		o.probeEvery = d
	}
}

// WithEventBuffer allows specifying the size of the per-subscriber event
// buffer. Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithManualSync disables the reconcile-on-reconnect trigger.
func WithManualSync(manual bool) Option {
	return func(o *options) {
		o.manualSync = manual
	}
}

// WithWatch reloads the in-memory state when another tool rewrites the
// record files (a restore, a file sync). Only the fs store supports it.
func WithWatch(enabled bool) Option {
	return func(o *options) {
		o.watch = enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or
// `go test`. By default (true) the data directory is re-rooted into a
// temporary directory.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithOwnerWait bounds how long New waits for another process to release
// the data directory before failing with ErrDirInUse.
func WithOwnerWait(d time.Duration) Option {
	return func(o *options) {
		o.ownerWait = d
	}
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}
