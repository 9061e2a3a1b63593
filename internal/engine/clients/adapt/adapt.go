// Package adapt bridges the per-service HTTP clients (which take an
// explicit per-call read timeout, since that timeout comes from the
// live options snapshot rather than a client constant) to the narrower
// filters.PowerStateFetcher/HSMStateFetcher/CFSConfigFetcher interfaces
// the filter library consumes. Each adapter closes over an
// *options.Cache so every call uses whatever timeout is current at
// call time.
package adapt

import (
	"context"

	"github.com/hpc-bos/bos/internal/engine/clients/cfs"
	"github.com/hpc-bos/bos/internal/engine/clients/hsm"
	"github.com/hpc-bos/bos/internal/engine/clients/pcs"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/filters"
	"github.com/hpc-bos/bos/internal/engine/options"
)

// PCS adapts *pcs.Client to filters.PowerStateFetcher.
type PCS struct {
	Client *pcs.Client
	Cache  *options.Cache
}

func (a PCS) PowerState(ctx context.Context, ids []string) (map[string]component.PowerState, error) {
	return a.Client.PowerState(ctx, a.Cache.Snapshot().PCSReadTimeout, ids)
}

// HSM adapts *hsm.Client to filters.HSMStateFetcher.
type HSM struct {
	Client *hsm.Client
	Cache  *options.Cache
}

func (a HSM) State(ctx context.Context, ids []string) (map[string]filters.HSMComponentState, error) {
	states, err := a.Client.State(ctx, a.Cache.Snapshot().HSMReadTimeout, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]filters.HSMComponentState, len(states))
	for id, s := range states {
		out[id] = filters.HSMComponentState{Enabled: s.Enabled, Ready: s.Ready}
	}
	return out, nil
}

// CFS adapts *cfs.Client to filters.CFSConfigFetcher.
type CFS struct {
	Client *cfs.Client
	Cache  *options.Cache
}

func (a CFS) CurrentConfiguration(ctx context.Context, ids []string) (map[string]string, error) {
	return a.Client.CurrentConfiguration(ctx, a.Cache.Snapshot().CFSReadTimeout, ids)
}
