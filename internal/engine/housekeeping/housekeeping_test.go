package housekeeping

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/session"
	"github.com/hpc-bos/bos/internal/engine/store/memstore"
)

type fakeNodeLister struct {
	xnames []string
}

func (f fakeNodeLister) AllNodeXnames(context.Context, time.Duration) ([]string, error) {
	return f.xnames, nil
}

func TestDiscoveryAddsOnlyNewNodesDisabled(t *testing.T) {
	st := memstore.New()
	_ = st.Put(context.Background(), []component.Component{{ID: "x1", Enabled: true}})

	d := &Discovery{
		HSM:   fakeNodeLister{xnames: []string{"x1", "x2"}},
		Store: st,
		Clock: options.Defaults,
		Log:   logr.Discard(),
		Now:   func() time.Time { return time.Unix(500, 0) },
	}

	if err := d.tick(context.Background(), d.Clock()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	x1, ok, _ := st.Get(context.Background(), "x1")
	if !ok || !x1.Enabled {
		t.Errorf("existing component x1 should be untouched (still enabled), got %+v", x1)
	}

	x2, ok, _ := st.Get(context.Background(), "x2")
	if !ok {
		t.Fatal("expected x2 to be discovered")
	}
	if x2.Enabled {
		t.Error("newly discovered component must start disabled")
	}
	if x2.LastAction.Action != component.ActionNewlyDiscovered {
		t.Errorf("x2 last_action = %q, want newly_discovered", x2.LastAction.Action)
	}
}

func TestDiscoveryNeverDeletes(t *testing.T) {
	st := memstore.New()
	_ = st.Put(context.Background(), []component.Component{{ID: "stale", Enabled: true}})

	d := &Discovery{
		HSM:   fakeNodeLister{xnames: nil},
		Store: st,
		Clock: options.Defaults,
		Log:   logr.Discard(),
	}
	if err := d.tick(context.Background(), d.Clock()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	_, ok, _ := st.Get(context.Background(), "stale")
	if !ok {
		t.Error("discovery must never delete a component HSM stops reporting")
	}
}

func TestSessionCompletionMarksCompleteOnceAllDisabled(t *testing.T) {
	st := memstore.New()
	_ = st.Put(context.Background(), []component.Component{{ID: "a", Enabled: false}, {ID: "b", Enabled: false}})
	st.PutSession(session.Session{Name: "sess-1", Components: []string{"a", "b"}})

	sc := &SessionCompletion{Sessions: st, Store: st, Clock: options.Defaults, Log: logr.Discard()}
	if err := sc.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	incomplete, _ := st.ListIncomplete(context.Background())
	if len(incomplete) != 0 {
		t.Errorf("expected sess-1 to be marked complete, still incomplete: %v", incomplete)
	}
}

func TestSessionCompletionLeavesSessionIncompleteWhileAnyComponentEnabled(t *testing.T) {
	st := memstore.New()
	_ = st.Put(context.Background(), []component.Component{{ID: "a", Enabled: true}})
	st.PutSession(session.Session{Name: "sess-1", Components: []string{"a"}})

	sc := &SessionCompletion{Sessions: st, Store: st, Clock: options.Defaults, Log: logr.Discard()}
	if err := sc.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	incomplete, _ := st.ListIncomplete(context.Background())
	if len(incomplete) != 1 {
		t.Errorf("expected sess-1 to remain incomplete while a component is still enabled, got %v", incomplete)
	}
}

func TestSessionCleanupRespectsZeroTTLAndDeletesOldSessions(t *testing.T) {
	fixed := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	st := memstore.New().WithClock(func() time.Time { return fixed })
	st.PutSession(session.Session{Name: "old", Complete: true, CreatedAt: fixed.Add(-72 * time.Hour)})

	zeroTTL := options.Defaults()
	zeroTTL.CleanupCompletedSessionTTL = 0
	cleanup := &SessionCleanup{Sessions: st, Clock: func() options.Options { return zeroTTL }, Log: logr.Discard()}
	if err := cleanup.tick(context.Background(), zeroTTL); err != nil {
		t.Fatalf("tick: %v", err)
	}
	old, _ := st.ListCompleteOlderThan(context.Background(), 0)
	if len(old) != 1 {
		t.Fatal("zero TTL must disable cleanup, but the session was removed")
	}

	withTTL := options.Defaults()
	withTTL.CleanupCompletedSessionTTL = 24 * time.Hour
	cleanup = &SessionCleanup{Sessions: st, Clock: func() options.Options { return withTTL }, Log: logr.Discard()}
	if err := cleanup.tick(context.Background(), withTTL); err != nil {
		t.Fatalf("tick: %v", err)
	}
	old, _ = st.ListCompleteOlderThan(context.Background(), 0)
	if len(old) != 0 {
		t.Errorf("expected the old session to be deleted once TTL is set, got %v", old)
	}
}
