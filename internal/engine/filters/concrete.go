package filters

import (
	"context"
	"strings"
	"time"

	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/store"
)

// BOSQuery is the INITIAL filter every operator chain starts with. It
// pushes enabled/status predicates down to the component store.
type BOSQuery struct {
	Enabled *bool
	Status  *component.Status
}

func (f BOSQuery) Name() string { return "BOSQuery" }

func (f BOSQuery) InitialQuery() store.ComponentQuery {
	return store.ComponentQuery{Enabled: f.Enabled, Status: f.Status}
}

func (f BOSQuery) Apply(_ context.Context, in []component.Component) ([]component.Component, error) {
	return in, nil
}

func boolPtr(b bool) *bool { return &b }

// EnabledTrue is the common BOSQuery(enabled=true) shorthand used by
// nearly every action operator.
func EnabledTrue() BOSQuery { return BOSQuery{Enabled: boolPtr(true)} }

// PowerStateFetcher is the narrow PCS client surface PowerState needs.
type PowerStateFetcher interface {
	PowerState(ctx context.Context, ids []string) (map[string]component.PowerState, error)
}

// PowerState is a batch filter (it calls PCS) keeping only components
// reported in the given power state.
type PowerState struct {
	Client PowerStateFetcher
	State  component.PowerState
}

func (f PowerState) Name() string { return "PowerState(" + string(f.State) + ")" }

func (f PowerState) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	if len(in) == 0 {
		return nil, nil
	}
	ids := ids(in)
	states, err := f.Client.PowerState(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]component.Component, 0, len(in))
	for _, c := range in {
		if states[c.ID] == f.State {
			out = append(out, c)
		}
	}
	return out, nil
}

// HSMStateFetcher is the narrow HSM client surface HSMState needs.
type HSMStateFetcher interface {
	State(ctx context.Context, ids []string) (map[string]HSMComponentState, error)
}

// HSMComponentState is the subset of HSM's per-component state the
// filter library cares about.
type HSMComponentState struct {
	Enabled bool
	Ready   bool
}

// HSMState is a batch filter matching on HSM-reported enabled/ready.
type HSMState struct {
	Client  HSMStateFetcher
	Enabled *bool
	Ready   *bool
}

func (f HSMState) Name() string { return "HSMState" }

func (f HSMState) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	if len(in) == 0 {
		return nil, nil
	}
	states, err := f.Client.State(ctx, ids(in))
	if err != nil {
		return nil, err
	}
	out := make([]component.Component, 0, len(in))
	for _, c := range in {
		s, ok := states[c.ID]
		if !ok {
			continue
		}
		if f.Enabled != nil && s.Enabled != *f.Enabled {
			continue
		}
		if f.Ready != nil && s.Ready != *f.Ready {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// StatesMatch is a Local filter keeping components whose desired boot
// artifacts equal their actual boot artifacts.
type StatesMatch struct{}

func (StatesMatch) Name() string { return "StatesMatch" }
func (f StatesMatch) Match(c component.Component) bool {
	return component.BootArtifactsMatch(c.DesiredState, c.ActualState)
}
func (f StatesMatch) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	return localBase{match: f.Match, name: f.Name()}.Apply(ctx, in)
}

// BootArtifactStatesMatch is an alias kept distinct from StatesMatch in
// the original (spec.md §4.9 lists both names); here they share the
// same boot-artifact comparison, since configuration is tracked
// separately via DesiredConfigurationSetInCFS.
type BootArtifactStatesMatch struct{ StatesMatch }

func (BootArtifactStatesMatch) Name() string { return "BootArtifactStatesMatch" }

// DesiredBootStateIsNone is a Local filter keeping components with an
// empty desired boot-artifacts tuple.
type DesiredBootStateIsNone struct{}

func (DesiredBootStateIsNone) Name() string { return "DesiredBootStateIsNone" }
func (f DesiredBootStateIsNone) Match(c component.Component) bool {
	return c.DesiredState.BootArtifacts.IsZero()
}
func (f DesiredBootStateIsNone) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	return localBase{match: f.Match, name: f.Name()}.Apply(ctx, in)
}

// DesiredStateIsNone is a Local filter keeping components with no
// desired state at all (boot artifacts and configuration both empty).
type DesiredStateIsNone struct{}

func (DesiredStateIsNone) Name() string { return "DesiredStateIsNone" }
func (f DesiredStateIsNone) Match(c component.Component) bool { return c.DesiredState.IsZero() }
func (f DesiredStateIsNone) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	return localBase{match: f.Match, name: f.Name()}.Apply(ctx, in)
}

// CFSConfigFetcher is the narrow CFS client surface the configuration
// filters need: the configuration currently recorded by CFS, per id.
type CFSConfigFetcher interface {
	CurrentConfiguration(ctx context.Context, ids []string) (map[string]string, error)
}

// DesiredConfigurationSetInCFS is a batch filter keeping components
// whose CFS-recorded current configuration already equals their
// desired configuration.
type DesiredConfigurationSetInCFS struct {
	Client CFSConfigFetcher
}

func (f DesiredConfigurationSetInCFS) Name() string { return "DesiredConfigurationSetInCFS" }

func (f DesiredConfigurationSetInCFS) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	if len(in) == 0 {
		return nil, nil
	}
	current, err := f.Client.CurrentConfiguration(ctx, ids(in))
	if err != nil {
		return nil, err
	}
	out := make([]component.Component, 0, len(in))
	for _, c := range in {
		if c.DesiredState.Configuration != "" && current[c.ID] == c.DesiredState.Configuration {
			out = append(out, c)
		}
	}
	return out, nil
}

// DesiredConfigurationIsNone is a Local filter keeping components with
// no desired configuration.
type DesiredConfigurationIsNone struct{}

func (DesiredConfigurationIsNone) Name() string { return "DesiredConfigurationIsNone" }
func (f DesiredConfigurationIsNone) Match(c component.Component) bool {
	return c.DesiredState.Configuration == ""
}
func (f DesiredConfigurationIsNone) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	return localBase{match: f.Match, name: f.Name()}.Apply(ctx, in)
}

// LastActionIs is a Local filter keeping components whose last action
// is in the given comma-separated set.
type LastActionIs struct {
	Actions []component.Action
}

// ParseLastActionCSV builds a LastActionIs filter from a comma
// separated action list, matching spec.md §4.9's `LastActionIs(csv)`.
func ParseLastActionCSV(csv string) LastActionIs {
	parts := strings.Split(csv, ",")
	actions := make([]component.Action, 0, len(parts))
	for _, p := range parts {
		actions = append(actions, component.Action(strings.TrimSpace(p)))
	}
	return LastActionIs{Actions: actions}
}

func (LastActionIs) Name() string { return "LastActionIs" }
func (f LastActionIs) Match(c component.Component) bool {
	for _, a := range f.Actions {
		if c.LastAction.Action == a {
			return true
		}
	}
	return false
}
func (f LastActionIs) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	return localBase{match: f.Match, name: f.Name()}.Apply(ctx, in)
}

// TimeSinceLastAction is a Local filter keeping components whose
// last_action.last_updated is older than the given duration. A zero
// LastUpdated (no action ever taken) always matches.
type TimeSinceLastAction struct {
	Duration time.Duration
	Now      func() time.Time
}

func (TimeSinceLastAction) Name() string { return "TimeSinceLastAction" }
func (f TimeSinceLastAction) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}
func (f TimeSinceLastAction) Match(c component.Component) bool {
	if c.LastAction.LastUpdated.IsZero() {
		return true
	}
	return f.now().Sub(c.LastAction.LastUpdated) > f.Duration
}
func (f TimeSinceLastAction) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	return localBase{match: f.Match, name: f.Name()}.Apply(ctx, in)
}

// ActualStateAge is a Local filter keeping components whose
// actual_state.last_updated is older than the given duration. Unlike
// TimeSinceLastAction, a zero timestamp never matches: "unknown" actual
// state has no age to compare.
type ActualStateAge struct {
	Duration time.Duration
	Now      func() time.Time
}

func (ActualStateAge) Name() string { return "ActualStateAge" }
func (f ActualStateAge) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}
func (f ActualStateAge) Match(c component.Component) bool {
	if c.ActualState.LastUpdated.IsZero() {
		return false
	}
	return f.now().Sub(c.ActualState.LastUpdated) > f.Duration
}
func (f ActualStateAge) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	return localBase{match: f.Match, name: f.Name()}.Apply(ctx, in)
}

// ActualBootStateIsSet is a Local filter keeping components that have a
// non-empty actual boot-artifacts tuple.
type ActualBootStateIsSet struct{}

func (ActualBootStateIsSet) Name() string { return "ActualBootStateIsSet" }
func (f ActualBootStateIsSet) Match(c component.Component) bool {
	return !c.ActualState.BootArtifacts.IsZero()
}
func (f ActualBootStateIsSet) Apply(ctx context.Context, in []component.Component) ([]component.Component, error) {
	return localBase{match: f.Match, name: f.Name()}.Apply(ctx, in)
}

func ids(cs []component.Component) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
