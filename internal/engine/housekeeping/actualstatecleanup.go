package housekeeping

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/filters"
	"github.com/hpc-bos/bos/internal/engine/operator"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// NewActualStateCleanup builds the filter-driven operator implementing
// spec.md §4.7: components whose actual_state is older than
// component_actual_state_ttl get their actual_state reset to the zero
// value, so a node that stopped reporting eventually looks "unknown"
// again instead of forever matching a stale boot.
func NewActualStateCleanup(cs store.Components, clock func() options.Options, log logr.Logger, now func() time.Time) *operator.FilterDriven {
	return &operator.FilterDriven{
		OperatorName: "ActualStateCleanup",
		Filters: []filters.Filter{
			filters.BOSQuery{},
			filters.ActualStateAge{Duration: clock().ComponentActualStateTTL, Now: now},
		},
		Act:   operator.ActorFunc(actualStateCleanupAct(now)),
		Store: cs,
		Clock: clock,
		Interval: func(o options.Options) time.Duration {
			return o.PollingFrequency
		},
		Log: log,
	}
}

func actualStateCleanupAct(now func() time.Time) func(context.Context, options.Options, []component.Component) ([]store.ComponentUpdate, error) {
	if now == nil {
		now = time.Now
	}
	return func(_ context.Context, _ options.Options, in []component.Component) ([]store.ComponentUpdate, error) {
		ts := now()
		updates := make([]store.ComponentUpdate, len(in))
		for i, c := range in {
			updates[i] = store.ComponentUpdate{
				ID:          c.ID,
				ActualState: &component.ActualState{},
				LastAction: &component.LastAction{
					Action:      component.ActionActualStateCleanup,
					LastUpdated: ts,
				},
			}
		}
		return updates, nil
	}
}
