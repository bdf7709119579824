// Package netprobe reports connectivity by probing the network periodically.
//
// Connected means the host has a non-loopback interface that is up.
// InternetReachable means a TCP dial to one of the targets succeeded.
package netprobe

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/moss/pkg/core"
)

// Defaults for a Source.
const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 2 * time.Second
)

// DefaultTargets are dialed when Config.Targets is empty.
var DefaultTargets = []string{"1.1.1.1:443", "8.8.8.8:53"}

// ProbeFunc performs one connectivity check.
type ProbeFunc func(ctx context.Context) core.Reachability

// Config holds the probe settings.
type Config struct {
	Targets  []string
	Interval time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
	// Probe replaces the built-in interface and dial check.
	Probe ProbeFunc
}

// Source is a core.ConnectivitySource fed by periodic probes.
type Source struct {
	config Config
}

// New creates a Source.
func New(config Config) *Source {
	if len(config.Targets) == 0 {
		config.Targets = DefaultTargets
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Source{config: config}
	if s.config.Probe == nil {
		s.config.Probe = s.probe
	}
	return s
}

// Subscribe implements core.ConnectivitySource. The first probe result is
// delivered immediately; afterwards only changes are reported.
func (s *Source) Subscribe(ctx context.Context) (<-chan core.Reachability, error) {
	out := make(chan core.Reachability, 1)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)

		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		var last *core.Reachability
		for {
			r := s.config.Probe(ctx)
			if last == nil || *last != r {
				s.config.Logger.Debug("connectivity probed", "connected", r.Connected, "internet", r.InternetReachable)
				select {
				case out <- r:
				case <-ctx.Done():
					return nil
				}
				last = &r
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		s.config.Logger.Error("connectivity probe failed", "error", err)
	}))

	return out, nil
}

func (s *Source) probe(ctx context.Context) core.Reachability {
	r := core.Reachability{Connected: hasUplink()}
	if !r.Connected {
		return r
	}
	dialer := net.Dialer{Timeout: s.config.Timeout}
	for _, target := range s.config.Targets {
		conn, err := dialer.DialContext(ctx, "tcp", target)
		if err != nil {
			continue
		}
		_ = conn.Close()
		r.InternetReachable = true
		break
	}
	return r
}

func hasUplink() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			return true
		}
	}
	return false
}

var _ core.ConnectivitySource = (*Source)(nil)
