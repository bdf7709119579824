package core

import (
	"context"
	"sync"
)

// ManualSource is a ConnectivitySource driven by explicit Set calls.
// Each subscriber sees the latest report; intermediate reports may be
// skipped when a subscriber lags.
type ManualSource struct {
	mu     sync.Mutex
	latest *Reachability
	subs   map[chan Reachability]struct{}
}

// NewManualSource creates a source with no report yet.
func NewManualSource() *ManualSource {
	return &ManualSource{subs: make(map[chan Reachability]struct{})}
}

// NewFixedSource creates a source that reports online or offline once.
func NewFixedSource(online bool) *ManualSource {
	s := NewManualSource()
	s.Set(Reachability{Connected: online, InternetReachable: online})
	return s
}

// Set publishes a report to every subscriber.
func (s *ManualSource) Set(r Reachability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &r
	for ch := range s.subs {
		offer(ch, r)
	}
}

// SetOnline is shorthand for Set with both flags equal to online.
func (s *ManualSource) SetOnline(online bool) {
	s.Set(Reachability{Connected: online, InternetReachable: online})
}

// Subscribe implements ConnectivitySource. The channel replays the latest
// report, if any, and is closed when ctx ends.
func (s *ManualSource) Subscribe(ctx context.Context) (<-chan Reachability, error) {
	ch := make(chan Reachability, 1)

	s.mu.Lock()
	if s.latest != nil {
		ch <- *s.latest
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

// offer replaces any unread report with r.
func offer(ch chan Reachability, r Reachability) {
	select {
	case ch <- r:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- r:
	default:
	}
}
