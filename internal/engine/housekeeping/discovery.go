// Package housekeeping implements the operators from spec.md §4.6-§4.8.
// Discovery, SessionCompletion and SessionCleanup don't fit the
// filter-driven shape: each one owns its own tick logic rather than a
// filter chain + Actor. ActualStateCleanup is built on
// operator.FilterDriven.
package housekeeping

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// NodeLister is the narrow HSM surface Discovery needs.
type NodeLister interface {
	AllNodeXnames(ctx context.Context, readTimeout time.Duration) ([]string, error)
}

// Discovery implements spec.md §4.6: compute the set difference between
// every xname HSM knows and every component id BOS already has, and
// Put a disabled record for each new one. It never deletes — a
// component HSM stops reporting is left alone, matching "never delete"
// in spec.md's invariants.
type Discovery struct {
	HSM      NodeLister
	Store    store.Components
	Clock    func() options.Options
	Log      logr.Logger
	Now      func() time.Time
}

func (d *Discovery) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Run ticks at snapshot.DiscoveryFrequency until ctx is cancelled.
func (d *Discovery) Run(ctx context.Context) error {
	for {
		snapshot := d.Clock()
		if err := d.tick(ctx, snapshot); err != nil {
			d.Log.Info("discovery tick failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(snapshot.DiscoveryFrequency):
		}
	}
}

func (d *Discovery) tick(ctx context.Context, snapshot options.Options) error {
	hsmIDs, err := d.HSM.AllNodeXnames(ctx, snapshot.HSMReadTimeout)
	if err != nil {
		return err
	}
	bosIDs, err := d.Store.IDs(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]struct{}, len(bosIDs))
	for _, id := range bosIDs {
		known[id] = struct{}{}
	}

	var fresh []component.Component
	now := d.now()
	for _, id := range hsmIDs {
		if _, ok := known[id]; ok {
			continue
		}
		fresh = append(fresh, component.Component{
			ID:      id,
			Enabled: false,
			LastAction: component.LastAction{
				Action:      component.ActionNewlyDiscovered,
				LastUpdated: now,
			},
		})
	}

	if len(fresh) == 0 {
		return nil
	}
	return d.Store.Put(ctx, fresh)
}
