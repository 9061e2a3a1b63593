package filters

import (
	"context"

	"github.com/hpc-bos/bos/internal/engine/component"
)

// Not negates a Local filter's per-component match. Batch filters (ones
// that query an external service and cannot be evaluated one component
// at a time) are deliberately not accepted here — see spec.md §9.
func Not(f Local) Local {
	return localBase{
		negate: true,
		match:  f.Match,
		name:   "Not(" + filterName(f) + ")",
	}
}

// or is the OR([...],[...]) combinator from spec.md §4.9/§9: each
// alternative is a list of filters interpreted as AND (applied in
// sequence over the same input), and the alternatives' surviving id
// sets are unioned.
type or struct {
	alternatives [][]Filter
}

// Or builds the OR combinator over alternative AND-chains.
func Or(alternatives ...[]Filter) Filter {
	return or{alternatives: alternatives}
}

func (o or) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	matched := make(map[string]component.Component)
	for _, chain := range o.alternatives {
		survivors := in
		for _, f := range chain {
			var err error
			survivors, err = f.Apply(ctx, survivors)
			if err != nil {
				survivors = nil
				break
			}
			if len(survivors) == 0 {
				break
			}
		}
		for _, c := range survivors {
			matched[c.ID] = c
		}
	}
	out := make([]component.Component, 0, len(matched))
	for _, c := range in {
		if m, ok := matched[c.ID]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}
