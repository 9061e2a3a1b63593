package options

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/go-logr/logr"
)

type fakeStore struct {
	raw       Raw
	failUntil int32
	calls     int32
}

func (f *fakeStore) GetOptions(context.Context) (Raw, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failUntil {
		return nil, errors.New("unreachable")
	}
	return f.raw, nil
}

func TestCacheSnapshotStartsAtDefaults(t *testing.T) {
	c := NewCache(&fakeStore{raw: Raw{}}, logr.Discard())
	if c.Snapshot() != Defaults() {
		t.Errorf("initial snapshot should be Defaults()")
	}
}

func TestWaitForFirstFetchRetriesThenSucceeds(t *testing.T) {
	store := &fakeStore{raw: Raw{KeyMaxComponentBatchSize: "42"}, failUntil: 2}
	c := NewCache(store, logr.Discard())

	if err := c.WaitForFirstFetch(context.Background()); err != nil {
		t.Fatalf("WaitForFirstFetch: %v", err)
	}
	if got := c.Snapshot().MaxComponentBatchSize; got != 42 {
		t.Errorf("MaxComponentBatchSize = %d, want 42", got)
	}
}

func TestWaitForFirstFetchRespectsCancellation(t *testing.T) {
	store := &fakeStore{failUntil: 1000}
	c := NewCache(store, logr.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.WaitForFirstFetch(ctx); err == nil {
		t.Fatal("expected context cancellation error")
	}
}
