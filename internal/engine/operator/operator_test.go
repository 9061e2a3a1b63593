package operator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/filters"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
	"github.com/hpc-bos/bos/internal/engine/store/memstore"
)

// countingStore wraps memstore.Store and records how many Update calls
// it received, to verify persist() chunks by MaxComponentBatchSize.
type countingStore struct {
	*memstore.Store
	mu          sync.Mutex
	updateCalls int
}

func (c *countingStore) Update(ctx context.Context, updates []store.ComponentUpdate) error {
	c.mu.Lock()
	c.updateCalls++
	c.mu.Unlock()
	return c.Store.Update(ctx, updates)
}

type recordingHeartbeat struct {
	mu    sync.Mutex
	calls []string
	errs  int
}

func (r *recordingHeartbeat) Tick(operator string, selected, updated int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, operator)
	if err != nil {
		r.errs++
	}
}

func newPopulatedStore(n int) *countingStore {
	ms := memstore.New()
	comps := make([]component.Component, n)
	for i := 0; i < n; i++ {
		comps[i] = component.Component{ID: string(rune('a' + i)), Enabled: true}
	}
	_ = ms.Put(context.Background(), comps)
	return &countingStore{Store: ms}
}

func TestFilterDrivenPersistsUpdatesInBatches(t *testing.T) {
	cs := newPopulatedStore(5)
	markEnabled := false

	f := &FilterDriven{
		OperatorName: "test-op",
		Filters:      []filters.Filter{filters.EnabledTrue()},
		Act: ActorFunc(func(_ context.Context, _ options.Options, in []component.Component) ([]store.ComponentUpdate, error) {
			updates := make([]store.ComponentUpdate, len(in))
			for i, c := range in {
				updates[i] = store.ComponentUpdate{ID: c.ID, Enabled: &markEnabled}
			}
			return updates, nil
		}),
		Store: cs,
		Clock: func() options.Options {
			o := options.Defaults()
			o.MaxComponentBatchSize = 2
			return o
		},
		Log: logr.Discard(),
	}

	selected, updated, err := f.tick(context.Background(), f.Clock())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if selected != 5 || updated != 5 {
		t.Errorf("tick() = (%d, %d), want (5, 5)", selected, updated)
	}
	// 5 updates chunked at size 2 -> 3 Update calls (2, 2, 1).
	if cs.updateCalls != 3 {
		t.Errorf("Update called %d times, want 3", cs.updateCalls)
	}

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		got, _, _ := cs.Get(context.Background(), id)
		if got.Enabled {
			t.Errorf("component %s still enabled after persist", id)
		}
	}
}

func TestFilterDrivenActPanicIsolated(t *testing.T) {
	cs := newPopulatedStore(2)

	f := &FilterDriven{
		OperatorName: "panicky",
		Filters:      []filters.Filter{filters.EnabledTrue()},
		Act: ActorFunc(func(context.Context, options.Options, []component.Component) ([]store.ComponentUpdate, error) {
			panic("boom")
		}),
		Store: cs,
		Clock: options.Defaults,
		Log:   logr.Discard(),
	}

	selected, updated, err := f.tick(context.Background(), f.Clock())
	if !errors.Is(err, errActPanicked) {
		t.Fatalf("expected errActPanicked, got %v", err)
	}
	if selected != 2 || updated != 0 {
		t.Errorf("tick() = (%d, %d), want (2, 0)", selected, updated)
	}
	if cs.updateCalls != 0 {
		t.Errorf("Update should not be called when Act panics, called %d times", cs.updateCalls)
	}
}

func TestFilterDrivenActErrorLeavesComponentsUntouched(t *testing.T) {
	cs := newPopulatedStore(2)
	wantErr := errors.New("downstream unreachable")

	f := &FilterDriven{
		OperatorName: "erroring",
		Filters:      []filters.Filter{filters.EnabledTrue()},
		Act: ActorFunc(func(context.Context, options.Options, []component.Component) ([]store.ComponentUpdate, error) {
			return nil, wantErr
		}),
		Store: cs,
		Clock: options.Defaults,
		Log:   logr.Discard(),
	}

	_, updated, err := f.tick(context.Background(), f.Clock())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped downstream error, got %v", err)
	}
	if updated != 0 {
		t.Errorf("updated = %d, want 0", updated)
	}
}

func TestFilterDrivenRunStopsOnContextCancel(t *testing.T) {
	cs := newPopulatedStore(1)
	hb := &recordingHeartbeat{}

	f := &FilterDriven{
		OperatorName: "loop-test",
		Filters:      []filters.Filter{filters.EnabledTrue()},
		Act: ActorFunc(func(context.Context, options.Options, []component.Component) ([]store.ComponentUpdate, error) {
			return nil, nil
		}),
		Store:     cs,
		Clock:     options.Defaults,
		Interval:  func(options.Options) time.Duration { return time.Millisecond },
		Log:       logr.Discard(),
		Heartbeat: hb,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := f.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want context.DeadlineExceeded", err)
	}

	hb.mu.Lock()
	calls := len(hb.calls)
	hb.mu.Unlock()
	if calls == 0 {
		t.Error("expected at least one heartbeat tick before cancellation")
	}
}
