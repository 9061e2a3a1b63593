package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/clients/pcs"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// ReadyRecovery implements the stalled-boot recovery path described in
// SPEC_FULL.md's ReadyRecovery supplement: components whose boot
// artifacts already match but HSM still reports them not-ready past
// max_boot_wait_time get a fresh PCS On transition (the selection
// filter chain is responsible for gating on max_boot_wait_time, not
// this Act) and an `recovery` last_action, distinguishing a retried
// boot from the original power_on for metrics and operator debugging.
type ReadyRecovery struct {
	PCS *pcs.Client
	Log logr.Logger
	Now func() time.Time
}

func (a *ReadyRecovery) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *ReadyRecovery) Act(ctx context.Context, snapshot options.Options, in []component.Component) ([]store.ComponentUpdate, error) {
	if len(in) == 0 {
		return nil, nil
	}
	ids := make([]string, len(in))
	for i, c := range in {
		ids[i] = c.ID
	}

	if _, err := a.PCS.Transition(ctx, snapshot.PCSReadTimeout, pcs.On, ids); err != nil {
		return nil, fmt.Errorf("readyrecovery: pcs transition: %w", err)
	}

	now := a.now()
	updates := make([]store.ComponentUpdate, len(in))
	for i, c := range in {
		la := c.LastAction
		la.Action = component.ActionRecovery
		la.NumAttempts++
		la.LastUpdated = now
		updates[i] = store.ComponentUpdate{ID: c.ID, LastAction: &la}
	}
	return updates, nil
}
