// Package store defines the persistence interfaces the reconciliation
// core consumes. spec.md §1 scopes the actual store implementation out
// ("a Redis-like key/value store is assumed; any store satisfying §3
// suffices") — these interfaces are that contract. Two implementations
// ship: memstore (tests) and redisstore (production-shaped).
package store

import (
	"context"
	"time"

	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/session"
)

// ComponentQuery narrows a server-side component fetch. Every field is
// optional; a nil pointer means "don't filter on this." This is what
// lets an INITIAL filter (spec.md §4.9) push its predicate down to the
// store instead of pulling the whole inventory into the process.
type ComponentQuery struct {
	Enabled *bool
	Status  *component.Status
	Session *string
	IDs     []string
}

// ComponentUpdate is a partial, field-wise update applied to one
// component. Only non-nil fields are written, matching spec.md §5's
// requirement that enabled/last_action/actual_state/etc. commute as
// independent, orthogonal writes.
type ComponentUpdate struct {
	ID           string
	Enabled      *bool
	DesiredState *component.DesiredState
	ActualState  *component.ActualState
	StagedState  *component.DesiredState
	LastAction   *component.LastAction
	Status       *component.ComponentStatus
	Session      *string
	Error        *string
}

// Components is the component store contract.
type Components interface {
	// Query returns components matching q. Used by INITIAL filters.
	Query(ctx context.Context, q ComponentQuery) ([]component.Component, error)
	// Get returns a single component by id.
	Get(ctx context.Context, id string) (component.Component, bool, error)
	// Put inserts or fully replaces components (used by Discovery to
	// add newly observed nodes).
	Put(ctx context.Context, components []component.Component) error
	// Update applies partial field-wise updates in a single batch call.
	Update(ctx context.Context, updates []ComponentUpdate) error
	// IDs returns every component id currently known to BOS, used by
	// Discovery to compute the HSM−BOS set difference.
	IDs(ctx context.Context) ([]string, error)
}

// Sessions is the session store contract.
type Sessions interface {
	ListIncomplete(ctx context.Context) ([]session.Session, error)
	ListCompleteOlderThan(ctx context.Context, minAge time.Duration) ([]session.Session, error)
	MarkComplete(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
}

// Options is the option store contract; options.Cache depends only on
// the read side of this.
type Options interface {
	GetOptions(ctx context.Context) (options.Raw, error)
	PutOptions(ctx context.Context, raw options.Raw) error
}
