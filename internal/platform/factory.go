package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/moss/pkg/adapters/couch"
	"github.com/aretw0/moss/pkg/adapters/fs"
	"github.com/aretw0/moss/pkg/adapters/memory"
	"github.com/aretw0/moss/pkg/adapters/netprobe"
	"github.com/aretw0/moss/pkg/adapters/sqlite"
	"github.com/aretw0/moss/pkg/adapters/stub"
	"github.com/aretw0/moss/pkg/core"
)

// reloadRetry bounds how long a watch-triggered reload waits for an
// in-flight sync to finish.
const (
	reloadRetry    = 100 * time.Millisecond
	reloadAttempts = 50
)

// Runtime is a wired service plus the resources it owns.
type Runtime struct {
	Service *core.Service
	// Dir is the resolved data directory. Empty for the memory store.
	Dir string

	kv      core.KV
	remote  core.Remote
	logger  *slog.Logger
	cancel  context.CancelFunc
	closers []func() error
}

// New wires a Runtime rooted at dir. The returned runtime runs its
// background work (connectivity, watch) until Close.
//
//	rt, err := platform.New(ctx, "./.moss", platform.WithStore("sqlite"))
func New(ctx context.Context, dir string, opts ...Option) (*Runtime, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)
	rt := &Runtime{logger: o.logger, cancel: cancel}

	if err := rt.wire(ctx, dir, o); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) wire(ctx context.Context, dir string, o *options) error {
	codec, err := core.CodecByName(o.codec)
	if err != nil {
		return err
	}

	kv, err := rt.openKV(ctx, dir, codec, o)
	if err != nil {
		return err
	}
	rt.kv = kv

	remote, err := rt.openRemote(ctx, o)
	if err != nil {
		return err
	}
	rt.remote = remote

	dispatch := Dispatcher(o.logger)
	svc, err := core.Open(ctx, core.NewStore(kv, codec), remote, core.Config{
		Logger:      o.logger,
		EventBuffer: o.eventBuffer,
		Now:         o.clock,
		Dispatch:    dispatch,
		ManualSync:  o.manualSync,
	})
	if err != nil {
		return err
	}
	rt.Service = svc

	if err := svc.Connect(ctx, rt.connectivity(o)); err != nil {
		return err
	}

	if o.watch {
		return rt.watch(ctx, dispatch)
	}
	return nil
}

func (rt *Runtime) openKV(ctx context.Context, dir string, codec core.Codec, o *options) (core.KV, error) {
	if o.kv != nil {
		return o.kv, nil
	}
	if o.store == StoreMemory {
		return memory.New(), nil
	}

	bypass := !o.devSafety
	useTemp := o.forceTemp || (IsDevRun() && !bypass)
	rt.Dir = ResolveDataDir(dir, useTemp)
	if IsDevRun() {
		if bypass {
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", rt.Dir)
		} else {
			o.logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", rt.Dir)
		}
	}
	if useTemp && rt.Dir != dir {
		o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", dir, "resolved_path", rt.Dir)
	}

	release, err := claimDir(ctx, rt.Dir, o.ownerWait)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, release)

	switch o.store {
	case StoreFS:
		return fs.New(fs.Config{
			Path:   rt.Dir,
			Ext:    codec.Ext(),
			Logger: o.logger,
		})
	case StoreSQLite:
		kv, err := sqlite.Open(filepath.Join(rt.Dir, sqlite.DefaultFileName), o.logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, kv.Close)
		return kv, nil
	default:
		return nil, fmt.Errorf("%w: unknown store: %s", core.ErrInvalidConfig, o.store)
	}
}

func (rt *Runtime) openRemote(ctx context.Context, o *options) (core.Remote, error) {
	if o.remote != nil {
		return o.remote, nil
	}
	switch o.remoteName {
	case RemoteStub:
		return stub.New(o.stubDelay), nil
	case RemoteCouch:
		remote, err := couch.Open(ctx, couch.Config{
			URL:      o.couchURL,
			DB:       o.couchDB,
			CreateDB: true,
			Logger:   o.logger,
		})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, remote.Close)
		return remote, nil
	default:
		return nil, fmt.Errorf("%w: unknown remote: %s", core.ErrInvalidConfig, o.remoteName)
	}
}

func (rt *Runtime) connectivity(o *options) core.ConnectivitySource {
	if o.connectivity != nil {
		return o.connectivity
	}
	switch o.online {
	case OnlineTrue:
		return core.NewFixedSource(true)
	case OnlineFalse:
		return core.NewFixedSource(false)
	default:
		return netprobe.New(netprobe.Config{Interval: o.probeEvery, Logger: o.logger})
	}
}

// watch reloads the service whenever another process rewrites a record.
func (rt *Runtime) watch(ctx context.Context, dispatch core.Dispatcher) error {
	w, ok := rt.kv.(core.Watchable)
	if !ok {
		return fmt.Errorf("%w: store does not support watching", core.ErrInvalidConfig)
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	dispatch(ctx, func(ctx context.Context) {
		for key := range changes {
			rt.logger.Debug("external change detected", "key", key)
			rt.reload(ctx)
		}
	})
	return nil
}

func (rt *Runtime) reload(ctx context.Context) {
	for attempt := 0; attempt < reloadAttempts; attempt++ {
		err := rt.Service.Reload(ctx)
		if !errors.Is(err, core.ErrAlreadyInFlight) {
			if err != nil {
				rt.logger.Warn("reload after external change failed", "error", err)
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reloadRetry):
		}
	}
	rt.logger.Warn("gave up reloading, sync still in flight")
}

// AwaitConnectivity blocks until the first connectivity report has been
// applied or timeout elapses. It reports whether the state is known.
func (rt *Runtime) AwaitConnectivity(ctx context.Context, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		if rt.Service.Connectivity() != core.ConnectivityUnknown {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-tick.C:
		}
	}
}

// KV returns the storage adapter in use.
func (rt *Runtime) KV() core.KV { return rt.kv }

// Remote returns the remote adapter in use.
func (rt *Runtime) Remote() core.Remote { return rt.remote }

// Close stops the background work and releases the adapters.
func (rt *Runtime) Close() error {
	rt.cancel()
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// Dispatcher returns a core.Dispatcher that runs work through
// lifecycle.Go so panics are recovered and reported.
func Dispatcher(logger *slog.Logger) core.Dispatcher {
	return func(ctx context.Context, fn func(ctx context.Context)) {
		lifecycle.Go(ctx, func(ctx context.Context) error {
			fn(ctx)
			return nil
		}, lifecycle.WithErrorHandler(func(err error) {
			logger.Error("background task failed", "error", err)
		}))
	}
}
