// Package filters implements the composable predicate library described
// in spec.md §4.9: exactly one INITIAL filter per operator queries the
// store for a candidate universe, every other filter narrows that list,
// NOT negates local filters, and OR unions alternative filter chains.
package filters

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// Filter narrows a list of candidate components. Implementations must
// never panic; Apply recovers and fail-closes per spec.md §4.1/§4.9.
type Filter interface {
	// Apply returns the subset of in that matches. For an Initial
	// filter, Chain first runs its InitialQuery against the store and
	// passes the result in as in.
	Apply(ctx context.Context, in []component.Component) ([]component.Component, error)
}

// Local is a Filter that can also be evaluated one component at a time.
// Only Local filters can be negated (spec.md §9's design note: "NOT(f)
// requires that f expose a per-component match... enforce by splitting
// into LocalFilter... vs BatchFilter (cannot be negated)").
type Local interface {
	Filter
	Match(c component.Component) bool
}

// Initial marks the single filter in a chain allowed to run against an
// empty input and query the store.
type Initial interface {
	Filter
	// InitialQuery builds the store query this filter represents.
	InitialQuery() store.ComponentQuery
}

// Chain runs filters in sequence: the first filter in the chain must be
// an Initial filter; it is invoked with the store passed in, and every
// subsequent filter narrows its output. A panicking or erroring filter
// fails closed — it contributes the empty set for that call — per
// spec.md §4.1 ("Exceptions inside a single filter are caught and
// logged; the filter returns the empty set").
func Chain(ctx context.Context, log logr.Logger, cs store.Components, chain []Filter) (out []component.Component, err error) {
	if len(chain) == 0 {
		return nil, nil
	}
	first, ok := chain[0].(Initial)
	if !ok {
		return nil, ErrNoInitialFilter
	}

	candidates := safeQuery(ctx, log, cs, first)
	for _, f := range chain[1:] {
		candidates = safeApply(ctx, log, f, candidates)
		if len(candidates) == 0 {
			break
		}
	}
	return candidates, nil
}

// ErrNoInitialFilter is returned by Chain when the first filter in a
// chain does not implement Initial.
var ErrNoInitialFilter = errNoInitialFilter{}

type errNoInitialFilter struct{}

func (errNoInitialFilter) Error() string { return "filters: chain must start with an Initial filter" }

func safeQuery(ctx context.Context, log logr.Logger, cs store.Components, f Initial) (result []component.Component) {
	defer func() {
		if r := recover(); r != nil {
			log.Info("filter panicked, treating as empty match", "filter", filterName(f), "recover", r)
			result = nil
		}
	}()
	components, err := cs.Query(ctx, f.InitialQuery())
	if err != nil {
		log.Info("initial filter query failed, treating as empty match", "filter", filterName(f), "error", err)
		return nil
	}
	out, err := f.Apply(ctx, components)
	if err != nil {
		log.Info("initial filter apply failed, treating as empty match", "filter", filterName(f), "error", err)
		return nil
	}
	return out
}

func safeApply(ctx context.Context, log logr.Logger, f Filter, in []component.Component) (result []component.Component) {
	defer func() {
		if r := recover(); r != nil {
			log.Info("filter panicked, treating as empty match", "filter", filterName(f), "recover", r)
			result = nil
		}
	}()
	out, err := f.Apply(ctx, in)
	if err != nil {
		log.Info("filter failed, treating as empty match", "filter", filterName(f), "error", err)
		return nil
	}
	return out
}

func filterName(f Filter) string {
	type named interface{ Name() string }
	if n, ok := f.(named); ok {
		return n.Name()
	}
	return "unknown"
}

// localBase provides the Filter.Apply implementation for any Local
// filter in terms of its Match method, plus optional negation.
type localBase struct {
	negate bool
	match  func(component.Component) bool
	name   string
}

func (l localBase) Name() string { return l.name }

func (l localBase) Match(c component.Component) bool {
	if l.negate {
		return !l.match(c)
	}
	return l.match(c)
}

func (l localBase) Apply(_ context.Context, in []component.Component) ([]component.Component, error) {
	out := make([]component.Component, 0, len(in))
	for _, c := range in {
		if l.Match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}
