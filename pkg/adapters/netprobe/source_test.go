package netprobe

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/moss/pkg/core"
)

func TestSource_ReportsChangesOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	script := []bool{false, false, true, true, false}
	src := New(Config{
		Interval: 5 * time.Millisecond,
		Probe: func(ctx context.Context) core.Reachability {
			i := int(calls.Add(1)) - 1
			up := script[len(script)-1]
			if i < len(script) {
				up = script[i]
			}
			return core.Reachability{Connected: true, InternetReachable: up}
		},
	})

	ch, err := src.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	want := []bool{false, true, false}
	for i, w := range want {
		select {
		case r := <-ch:
			if r.Online() != w {
				t.Errorf("report %d: online=%v, want %v", i, r.Online(), w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for report %d", i)
		}
	}

	select {
	case r := <-ch:
		t.Errorf("unexpected extra report %+v", r)
	case <-time.After(30 * time.Millisecond):
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSource_DialProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	src := New(Config{Targets: []string{ln.Addr().String()}, Timeout: time.Second})
	r := src.probe(context.Background())
	if r.Connected && !r.InternetReachable {
		t.Errorf("dial to a live listener should succeed: %+v", r)
	}

	closed := New(Config{Targets: []string{"127.0.0.1:1"}, Timeout: 100 * time.Millisecond})
	if r := closed.probe(context.Background()); r.InternetReachable {
		t.Errorf("dial to a closed port must fail: %+v", r)
	}
}
