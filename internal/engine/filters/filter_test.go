package filters

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/store"
)

type stubComponents struct {
	components []component.Component
}

func (s stubComponents) Query(_ context.Context, q store.ComponentQuery) ([]component.Component, error) {
	var out []component.Component
	for _, c := range s.components {
		if q.Enabled != nil && c.Enabled != *q.Enabled {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
func (s stubComponents) Get(context.Context, string) (component.Component, bool, error) {
	return component.Component{}, false, nil
}
func (s stubComponents) Put(context.Context, []component.Component) error { return nil }
func (s stubComponents) Update(context.Context, []store.ComponentUpdate) error {
	return nil
}
func (s stubComponents) IDs(context.Context) ([]string, error) { return nil, nil }

type panickingFilter struct{}

func (panickingFilter) Apply(context.Context, []component.Component) ([]component.Component, error) {
	panic("boom")
}

type erroringFilter struct{}

func (erroringFilter) Apply(context.Context, []component.Component) ([]component.Component, error) {
	return nil, errors.New("downstream unreachable")
}

func enabled(id string, e bool) component.Component {
	return component.Component{ID: id, Enabled: e}
}

func TestChainRequiresInitialFirst(t *testing.T) {
	_, err := Chain(context.Background(), logr.Discard(), stubComponents{}, []Filter{StatesMatch{}})
	if !errors.Is(err, ErrNoInitialFilter) {
		t.Fatalf("expected ErrNoInitialFilter, got %v", err)
	}
}

func TestChainNarrowsAcrossFilters(t *testing.T) {
	cs := stubComponents{components: []component.Component{enabled("a", true), enabled("b", true)}}
	chain := []Filter{EnabledTrue(), Not(LastActionIs{Actions: []component.Action{component.ActionPowerOn}})}

	out, err := Chain(context.Background(), logr.Discard(), cs, chain)
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected both components to survive, got %v", out)
	}
}

func TestChainFailsClosedOnPanic(t *testing.T) {
	cs := stubComponents{components: []component.Component{enabled("a", true)}}
	out, err := Chain(context.Background(), logr.Discard(), cs, []Filter{EnabledTrue(), panickingFilter{}})
	if err != nil {
		t.Fatalf("Chain should not surface the panic as an error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty result after a panicking filter, got %v", out)
	}
}

func TestChainFailsClosedOnFilterError(t *testing.T) {
	cs := stubComponents{components: []component.Component{enabled("a", true)}}
	out, err := Chain(context.Background(), logr.Discard(), cs, []Filter{EnabledTrue(), erroringFilter{}})
	if err != nil {
		t.Fatalf("Chain should not surface the filter error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty result after an erroring filter, got %v", out)
	}
}

func TestNotNegatesMatch(t *testing.T) {
	f := Not(LastActionIs{Actions: []component.Action{component.ActionPowerOn}})
	c := component.Component{LastAction: component.LastAction{Action: component.ActionPowerOn}}
	if f.Match(c) {
		t.Error("Not(LastActionIs(power_on)) should not match a component whose last action is power_on")
	}
	c2 := component.Component{LastAction: component.LastAction{Action: component.ActionConfiguring}}
	if !f.Match(c2) {
		t.Error("Not(LastActionIs(power_on)) should match a component whose last action differs")
	}
}

func TestOrUnionsAlternatives(t *testing.T) {
	a := enabled("a", true)
	b := enabled("b", true)
	c := enabled("c", true)
	in := []component.Component{a, b, c}

	onlyA := localFilter(func(x component.Component) bool { return x.ID == "a" })
	onlyC := localFilter(func(x component.Component) bool { return x.ID == "c" })

	combinator := Or([]Filter{onlyA}, []Filter{onlyC})
	out, err := combinator.Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("Or.Apply: %v", err)
	}
	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "c" {
		t.Errorf("Or result = %v, want [a, c] preserving input order", out)
	}
}

// localFilter adapts a predicate function to Filter for test use.
type localFilter func(component.Component) bool

func (f localFilter) Apply(_ context.Context, in []component.Component) ([]component.Component, error) {
	out := make([]component.Component, 0, len(in))
	for _, c := range in {
		if f(c) {
			out = append(out, c)
		}
	}
	return out, nil
}
