package core_test

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/aretw0/moss/pkg/adapters/memory"
	"github.com/aretw0/moss/pkg/core"
)

// =============================================================================
// Generators for property-based testing
// =============================================================================

func titleGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Za-z0-9 ]{0,30}`)
}

func contentGenerator() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.Just(""),
		rapid.StringMatching(`[A-Za-z0-9 .,!?\n]{1,120}`),
	)
}

// pickID draws a live note id, or a random one when there are no notes.
func pickID(t *rapid.T, svc *core.Service) string {
	notes := svc.Notes()
	if len(notes) == 0 {
		return rapid.StringMatching(`[a-z0-9]{8}`).Draw(t, "missingID")
	}
	return notes[rapid.IntRange(0, len(notes)-1).Draw(t, "idx")].ID
}

// =============================================================================
// Property: the queue and the notes agree after every operation
// =============================================================================

func testService_Invariants_Properties(t *rapid.T) {
	ctx := context.Background()
	kv := memory.New()
	accept := true
	remote := core.RemoteFunc(func(ctx context.Context, entries []core.Entry) (core.RemoteResult, error) {
		return core.RemoteResult{Success: accept, Message: "done"}, nil
	})

	open := func() *core.Service {
		svc, err := core.Open(ctx, core.NewStore(kv, nil), remote, core.Config{ManualSync: true})
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		return svc
	}
	svc := open()

	t.Repeat(map[string]func(*rapid.T){
		"add": func(t *rapid.T) {
			svc.AddNote(ctx, titleGenerator().Draw(t, "title"), contentGenerator().Draw(t, "content"))
		},
		"update": func(t *rapid.T) {
			_, _ = svc.UpdateNote(ctx, pickID(t, svc), titleGenerator().Draw(t, "title"), contentGenerator().Draw(t, "content"))
		},
		"delete": func(t *rapid.T) {
			_ = svc.DeleteNote(ctx, pickID(t, svc))
		},
		"connectivity": func(t *rapid.T) {
			up := rapid.Bool().Draw(t, "online")
			svc.ObserveConnectivity(ctx, core.Reachability{Connected: up, InternetReachable: up})
		},
		"remote": func(t *rapid.T) {
			accept = rapid.Bool().Draw(t, "accept")
		},
		"reconcile": func(t *rapid.T) {
			before := len(svc.Pending())
			res := svc.Reconcile(ctx)
			if res.Success && len(svc.Pending()) != 0 {
				t.Fatalf("successful reconcile left %d entries", len(svc.Pending()))
			}
			if !res.Success && len(svc.Pending()) != before {
				t.Fatalf("failed reconcile changed the queue: %d -> %d", before, len(svc.Pending()))
			}
		},
		"reopen": func(t *rapid.T) {
			notes, pending := len(svc.Notes()), len(svc.Pending())
			svc = open()
			if len(svc.Notes()) != notes || len(svc.Pending()) != pending {
				t.Fatalf("reopen changed state: notes %d -> %d, pending %d -> %d",
					notes, len(svc.Notes()), pending, len(svc.Pending()))
			}
		},
		"clear": func(t *rapid.T) {
			if err := svc.ClearAllData(ctx); err != nil {
				t.Fatalf("ClearAllData failed: %v", err)
			}
		},
		"": func(t *rapid.T) {
			checkInvariants(t, svc)
		},
	})
}

func TestService_Invariants_Properties(t *testing.T) {
	rapid.Check(t, testService_Invariants_Properties)
}

func FuzzService_Invariants_Properties(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testService_Invariants_Properties))
}
