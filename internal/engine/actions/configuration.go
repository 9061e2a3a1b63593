package actions

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/clients/cfs"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// Configuration implements spec.md §4.5: PATCH CFS with
// {id, enabled:true, desiredConfig} for every selected component,
// chunked at 1000 per request by the cfs client itself. Tags are not
// set, so the tags field is omitted from each patch. On success no
// update is returned and last_action is left as it was: configuration
// completion is observed through DesiredConfigurationSetInCFS on a
// later tick, not through an action-specific status.
type Configuration struct {
	CFS *cfs.Client
	Log logr.Logger
}

func (a *Configuration) Act(ctx context.Context, snapshot options.Options, in []component.Component) ([]store.ComponentUpdate, error) {
	if len(in) == 0 {
		return nil, nil
	}

	patches := make([]cfs.Patch, len(in))
	for i, c := range in {
		patches[i] = cfs.Patch{ID: c.ID, Enabled: true, DesiredConfig: c.DesiredState.Configuration}
	}

	if err := a.CFS.PatchComponents(ctx, snapshot.CFSReadTimeout, patches); err != nil {
		return nil, fmt.Errorf("configuration: cfs patch: %w", err)
	}

	// Nothing in the component record changes on success: last_action
	// is left as it was so LastActionIs/TimeSinceLastAction filters on other
	// operators aren't polluted by a configuring state that isn't real.
	return nil, nil
}
