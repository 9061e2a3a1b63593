package options

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-logr/logr"
)

// Store is the narrow slice of the option store the cache needs: read
// the current raw option blob. It is satisfied by store.Options.
type Store interface {
	GetOptions(ctx context.Context) (Raw, error)
}

// RefreshInterval is the fixed cadence at which the cache polls the
// option store, per spec.md §5 ("refreshed on a 5-second cadence").
const RefreshInterval = 5 * time.Second

// Cache is a process-wide singleton publishing immutable Options
// snapshots. Readers call Snapshot and get an atomically-visible value;
// the refresher goroutine is the only writer. Modeled on the original's
// OptionsData singleton, replacing its create-lock/double-checked-init
// dance with atomic.Pointer, which gives the same "one writer, many
// lock-free readers" property idiomatically in Go.
type Cache struct {
	store   Store
	log     logr.Logger
	current atomic.Pointer[Options]
}

// NewCache constructs a Cache holding Defaults() until the first
// successful refresh.
func NewCache(store Store, log logr.Logger) *Cache {
	c := &Cache{store: store, log: log}
	d := Defaults()
	c.current.Store(&d)
	return c
}

// Snapshot returns the most recently published Options. It never
// blocks and never returns nil.
func (c *Cache) Snapshot() Options {
	return *c.current.Load()
}

// WaitForFirstFetch blocks, retrying with exponential backoff, until
// the option store answers once. Per spec.md §7 ("option-store
// unreachable at startup: the engine blocks on a one-second retry loop
// rather than crashing"), operators are free to start immediately with
// Defaults(); this call is used only by the process that wants to avoid
// running its very first tick against guessed values, not by operators
// themselves.
func (c *Cache) WaitForFirstFetch(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = time.Second
	for {
		if err := c.refreshOnce(ctx); err == nil {
			return nil
		} else {
			c.log.V(1).Info("waiting for option store", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bo.NextBackOff()):
		}
	}
}

// Run refreshes the cache every RefreshInterval until ctx is canceled.
// A failed refresh logs and keeps serving the last good snapshot.
func (c *Cache) Run(ctx context.Context) error {
	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.refreshOnce(ctx); err != nil {
				c.log.Error(err, "refreshing options, keeping previous snapshot")
			}
		}
	}
}

func (c *Cache) refreshOnce(ctx context.Context) error {
	raw, err := c.store.GetOptions(ctx)
	if err != nil {
		return err
	}
	snap := Decode(raw, func(key string, decodeErr error) {
		c.log.Info("ignoring invalid option value", "key", key, "error", decodeErr)
	})
	c.current.Store(&snap)
	return nil
}
