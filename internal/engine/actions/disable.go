package actions

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// Disable marks completed components disabled — those whose desired
// boot artifacts match their actual ones while powered on, or that have
// no desired state while powered off, as selected by the filter chain
// built in cmd/bos-operators — subject to
// DisableComponentsOnCompletion (DESIGN.md Open Question #2): when
// false, status/phase are still recomputed but the enabled:=false write
// is skipped, leaving the component enabled indefinitely.
type Disable struct {
	Log logr.Logger
	Now func() time.Time
}

func (a *Disable) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Disable) Act(_ context.Context, snapshot options.Options, in []component.Component) ([]store.ComponentUpdate, error) {
	if len(in) == 0 {
		return nil, nil
	}

	now := a.now()
	updates := make([]store.ComponentUpdate, 0, len(in))
	for _, c := range in {
		status := DeriveStatus(c, now)
		update := store.ComponentUpdate{ID: c.ID, Status: &status}
		if snapshot.DisableComponentsOnCompletion {
			enabled := false
			update.Enabled = &enabled
		}
		updates = append(updates, update)
	}
	return updates, nil
}
