package actions

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// Status is the standalone operator that keeps component.Status fresh
// (DESIGN.md Open Question #4). Its filter chain selects every enabled
// component, and it writes an update only where DeriveStatus differs
// from the stored status. Disable also calls DeriveStatus on the
// components it acts on; PowerOn, the power-off operators,
// Configuration and ReadyRecovery do not touch Status.
type Status struct {
	Log logr.Logger
	Now func() time.Time
}

func (a *Status) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Status) Act(_ context.Context, _ options.Options, in []component.Component) ([]store.ComponentUpdate, error) {
	now := a.now()
	updates := make([]store.ComponentUpdate, 0, len(in))
	for _, c := range in {
		derived := DeriveStatus(c, now)
		if derived == c.Status {
			continue
		}
		updates = append(updates, store.ComponentUpdate{ID: c.ID, Status: &derived})
	}
	return updates, nil
}
