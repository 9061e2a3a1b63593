package actions

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// SetStatus is the housekeeping counterpart to Status (DESIGN.md Open
// Question #4): it persists a caller-requested status_override
// (typically via a session's on_hold request) verbatim and never
// touches last_action, unlike every other action operator. The filter
// chain feeding this operator is responsible for selecting only
// components whose pending override differs from what is stored.
type SetStatus struct {
	Log logr.Logger
}

func (a *SetStatus) Act(_ context.Context, _ options.Options, in []component.Component) ([]store.ComponentUpdate, error) {
	updates := make([]store.ComponentUpdate, len(in))
	for i, c := range in {
		status := c.Status
		updates[i] = store.ComponentUpdate{ID: c.ID, Status: &status}
	}
	return updates, nil
}
