// Package operator implements the generic poll→fetch→act→update loop
// described in spec.md §4.1/§9: every filter-driven operator shares the
// same tick shape, differing only in its filter chain and its act
// function. Housekeeping operators that don't fit the filter-driven
// shape (Discovery, SessionCompletion, SessionCleanup) implement Runner
// directly instead of using FilterDriven.
package operator

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/filters"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// Runner is anything that can run its own tick loop until ctx is
// cancelled. FilterDriven operators satisfy this via Run below;
// housekeeping operators with a bespoke tick shape implement it
// directly.
type Runner interface {
	Run(ctx context.Context) error
}

// Actor performs the side effect for one operator tick. It receives the
// batch of components the filter chain selected and returns, for each
// one it touched, the field-wise update to persist. Actors must not
// persist anything themselves — the base loop owns writing to the
// store so that batching/chunking stays in one place.
//
// An Actor that fails for an individual component should still return
// an update for it (typically LastAction.Failed=true) rather than
// omitting it — a dropped component silently skips the failure
// bookkeeping in spec.md §4.1 ("a failure counts against
// last_action.num_attempts, it never stops the loop").
type Actor interface {
	Act(ctx context.Context, snapshot options.Options, components []component.Component) ([]store.ComponentUpdate, error)
}

// ActorFunc adapts a plain function to Actor.
type ActorFunc func(ctx context.Context, snapshot options.Options, components []component.Component) ([]store.ComponentUpdate, error)

func (f ActorFunc) Act(ctx context.Context, snapshot options.Options, components []component.Component) ([]store.ComponentUpdate, error) {
	return f(ctx, snapshot, components)
}

// Heartbeat records that an operator completed a tick. Left as an
// interface so tests can assert on call counts without a metrics
// backend; internal/telemetry supplies the Prometheus-backed
// implementation.
type Heartbeat interface {
	Tick(operator string, selected, updated int, err error)
}

// NopHeartbeat discards heartbeats.
type NopHeartbeat struct{}

func (NopHeartbeat) Tick(string, int, int, error) {}

// FilterDriven runs one filter chain, hands the result to an Actor, and
// persists whatever updates the Actor returns — the shape spec.md §9
// calls out for every action operator (PowerOn, GracefulPowerOff,
// ForcefulPowerOff, Configuration, ReadyRecovery, Disable, Status).
type FilterDriven struct {
	OperatorName string
	Filters      []filters.Filter
	Act          Actor
	Store        store.Components
	Clock        func() options.Options
	Interval     func(options.Options) time.Duration
	Log          logr.Logger
	Heartbeat    Heartbeat
}

// Name satisfies the informal "operator" contract used in logging.
func (f *FilterDriven) Name() string { return f.OperatorName }

// Run ticks until ctx is cancelled, sleeping Interval(snapshot) between
// ticks. A tick that errors logs and continues; it never aborts the
// loop, matching spec.md §4.1's single-writer-never-dies model.
func (f *FilterDriven) Run(ctx context.Context) error {
	hb := f.Heartbeat
	if hb == nil {
		hb = NopHeartbeat{}
	}
	for {
		snapshot := f.Clock()
		selected, updated, err := f.tick(ctx, snapshot)
		hb.Tick(f.OperatorName, selected, updated, err)
		if err != nil {
			f.Log.Info("operator tick failed", "operator", f.OperatorName, "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.Interval(snapshot)):
		}
	}
}

func (f *FilterDriven) tick(ctx context.Context, snapshot options.Options) (selected, updated int, err error) {
	candidates, err := filters.Chain(ctx, f.Log, f.Store, f.Filters)
	if err != nil {
		return 0, 0, err
	}
	if len(candidates) == 0 {
		return 0, 0, nil
	}

	updates, err := f.safeAct(ctx, snapshot, candidates)
	if err != nil {
		f.Log.Info("operator act failed, components left untouched this tick", "operator", f.OperatorName, "error", err, "count", len(candidates))
		return len(candidates), 0, err
	}

	if err := f.persist(ctx, snapshot, updates); err != nil {
		return len(candidates), 0, err
	}
	return len(candidates), len(updates), nil
}

// safeAct isolates a panicking Actor the same way filters.Chain isolates
// a panicking filter: the tick logs and moves on rather than crashing
// the operator goroutine.
func (f *FilterDriven) safeAct(ctx context.Context, snapshot options.Options, in []component.Component) (out []store.ComponentUpdate, err error) {
	defer func() {
		if r := recover(); r != nil {
			f.Log.Info("operator act panicked", "operator", f.OperatorName, "recover", r)
			out, err = nil, errActPanicked
		}
	}()
	return f.Act.Act(ctx, snapshot, in)
}

var errActPanicked = actPanicked{}

type actPanicked struct{}

func (actPanicked) Error() string { return "operator: act panicked" }

// persist writes updates to the store in chunks of
// snapshot.MaxComponentBatchSize, per spec.md §6's batch-size tunable.
func (f *FilterDriven) persist(ctx context.Context, snapshot options.Options, updates []store.ComponentUpdate) error {
	size := snapshot.MaxComponentBatchSize
	if size <= 0 {
		size = len(updates)
	}
	for start := 0; start < len(updates); start += size {
		end := start + size
		if end > len(updates) {
			end = len(updates)
		}
		if err := f.Store.Update(ctx, updates[start:end]); err != nil {
			return err
		}
	}
	return nil
}
