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

// powerOff issues a single PCS transition for every selected component
// and records the corresponding action, shared by GracefulPowerOff and
// ForcefulPowerOff (spec.md §4.4: the two differ only in the PCS
// operation and the threshold the housekeeping filter chain uses to
// pick between them).
type powerOff struct {
	PCS       *pcs.Client
	Operation pcs.Operation
	Action    component.Action
	Log       logr.Logger
	Now       func() time.Time
}

func (a *powerOff) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *powerOff) Act(ctx context.Context, snapshot options.Options, in []component.Component) ([]store.ComponentUpdate, error) {
	if len(in) == 0 {
		return nil, nil
	}
	ids := make([]string, len(in))
	for i, c := range in {
		ids[i] = c.ID
	}

	if _, err := a.PCS.Transition(ctx, snapshot.PCSReadTimeout, a.Operation, ids); err != nil {
		return nil, fmt.Errorf("poweroff(%s): pcs transition: %w", a.Operation, err)
	}

	now := a.now()
	updates := make([]store.ComponentUpdate, len(in))
	for i, c := range in {
		updates[i] = store.ComponentUpdate{
			ID: c.ID,
			LastAction: &component.LastAction{
				Action:      a.Action,
				LastUpdated: now,
			},
		}
	}
	return updates, nil
}

// NewGracefulPowerOff builds the Soft-Off action operator's Act.
func NewGracefulPowerOff(client *pcs.Client, log logr.Logger) *powerOff {
	return &powerOff{PCS: client, Operation: pcs.SoftOff, Action: component.ActionPowerOffGracefully, Log: log}
}

// NewForcefulPowerOff builds the Force-Off action operator's Act.
func NewForcefulPowerOff(client *pcs.Client, log logr.Logger) *powerOff {
	return &powerOff{PCS: client, Operation: pcs.ForceOff, Action: component.ActionPowerOffForcefully, Log: log}
}
