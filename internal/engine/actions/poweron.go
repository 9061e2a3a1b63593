package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/clients/bss"
	"github.com/hpc-bos/bos/internal/engine/clients/pcs"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
	"github.com/hpc-bos/bos/internal/engine/tokens"
)

// PowerOn implements spec.md §4.3: group selected components by their
// desired boot-artifact identity, stage each group with BSS once, write
// the resulting token into both the token table and the component's
// desired state, then issue a single PCS On transition for every
// component touched this tick. A component lacking any bootable
// artifact is skipped, not errored — there is nothing for BSS to stage.
type PowerOn struct {
	BSS    *bss.Client
	PCS    *pcs.Client
	Tokens tokens.Table
	Log    logr.Logger
	Now    func() time.Time
}

func (a *PowerOn) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *PowerOn) Act(ctx context.Context, snapshot options.Options, in []component.Component) ([]store.ComponentUpdate, error) {
	groups := make(map[component.ArtifactKey][]component.Component)
	var updates []store.ComponentUpdate

	for _, c := range in {
		if !c.DesiredState.BootArtifacts.HasBootable() {
			continue
		}
		key := c.DesiredState.BootArtifacts.Key()
		groups[key] = append(groups[key], c)
	}

	var toPowerOn []string
	for key, group := range groups {
		ids := make([]string, len(group))
		for i, c := range group {
			ids[i] = c.ID
		}

		token, err := a.BSS.SetBootParameters(ctx, snapshot.BSSReadTimeout, ids, key.Kernel, key.Initrd, key.KernelParameters)
		if err != nil {
			a.Log.Info("bss stage failed, marking group failed", "error", err, "ids", ids)
			for _, c := range group {
				updates = append(updates, failedUpdate(c, component.ActionPowerOn, a.now()))
			}
			continue
		}

		if err := a.Tokens.Put(ctx, token, tokens.Record{
			Kernel: key.Kernel, Initrd: key.Initrd, KernelParameters: key.KernelParameters, Timestamp: a.now(),
		}); err != nil {
			a.Log.Info("token table write failed", "error", err, "token", token)
		}

		for _, c := range group {
			desired := c.DesiredState
			desired.BootArtifacts.BSSToken = token
			updates = append(updates, store.ComponentUpdate{
				ID:           c.ID,
				DesiredState: &desired,
				LastAction: &component.LastAction{
					Action:      component.ActionPowerOn,
					LastUpdated: a.now(),
				},
			})
			toPowerOn = append(toPowerOn, c.ID)
		}
	}

	if len(toPowerOn) > 0 {
		if _, err := a.PCS.Transition(ctx, snapshot.PCSReadTimeout, pcs.On, toPowerOn); err != nil {
			return nil, fmt.Errorf("poweron: pcs transition: %w", err)
		}
	}

	return updates, nil
}

func failedUpdate(c component.Component, action component.Action, now time.Time) store.ComponentUpdate {
	la := c.LastAction
	la.Action = action
	la.Failed = true
	la.NumAttempts++
	la.LastUpdated = now
	return store.ComponentUpdate{ID: c.ID, LastAction: &la}
}
