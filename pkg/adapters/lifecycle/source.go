// Package lifecycle bridges the core event stream to aretw0/lifecycle.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/moss/pkg/core"
)

// Subscriber is the part of core.Service the bridge needs.
type Subscriber interface {
	Subscribe(ctx context.Context) <-chan core.Event
}

type mossSource struct {
	svc    Subscriber
	filter map[core.EventType]bool
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits core events. When types
// are given only those are forwarded.
func NewSource(svc Subscriber, types ...core.EventType) lifecycle.Source {
	var filter map[core.EventType]bool
	if len(types) > 0 {
		filter = make(map[core.EventType]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}
	return &mossSource{
		svc:    svc,
		filter: filter,
		out:    make(chan lifecycle.Event),
	}
}

func (s *mossSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start subscribes to the service and forwards events until ctx ends.
func (s *mossSource) Start(ctx context.Context) error {
	events := s.svc.Subscribe(ctx)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				if s.filter != nil && !s.filter[e.Type] {
					continue
				}
				// core.Event implements lifecycle.Event (has String())
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
