// Package actions implements the per-operator Act functions that plug
// into operator.FilterDriven, grounded on spec.md §4.3-§4.8.
package actions

import (
	"time"

	"github.com/hpc-bos/bos/internal/engine/component"
)

// DeriveStatus recomputes a component's status/phase from its current
// fields. This is the Status operator's entire job (DESIGN.md Open
// Question #4): unlike SetStatus, which persists an explicit override
// during housekeeping, Status is a pure per-tick projection. Disable
// also calls it on the components it acts on, so it is factored out
// here rather than duplicated; the other action operators do not call
// it.
func DeriveStatus(c component.Component, now time.Time) component.ComponentStatus {
	if c.Status.StatusOverride != "" {
		return component.ComponentStatus{Status: c.Status.StatusOverride, StatusOverride: c.Status.StatusOverride}
	}

	if c.DesiredState.IsZero() {
		return component.ComponentStatus{Status: component.StatusStable, Phase: component.PhaseNone}
	}

	if c.Error != "" || c.LastAction.Failed {
		return component.ComponentStatus{Status: component.StatusFailed, Phase: c.Status.Phase}
	}

	wantsBoot := !c.DesiredState.BootArtifacts.IsZero()
	bootMatches := component.BootArtifactsMatch(c.DesiredState, c.ActualState)

	switch {
	case wantsBoot && !bootMatches:
		switch c.LastAction.Action {
		case component.ActionPowerOn:
			return component.ComponentStatus{Status: component.StatusPowerOnCalled, Phase: component.PhasePoweringOn}
		case component.ActionPowerOffGracefully, component.ActionPowerOffForcefully:
			return component.ComponentStatus{Status: statusForPowerOff(c.LastAction.Action), Phase: component.PhasePoweringOff}
		default:
			return component.ComponentStatus{Status: component.StatusPowerOnPending, Phase: component.PhasePoweringOn}
		}
	case c.DesiredState.Configuration != "" && c.LastAction.Action == component.ActionConfiguring:
		return component.ComponentStatus{Status: component.StatusConfiguring, Phase: component.PhaseConfiguring}
	default:
		return component.ComponentStatus{Status: component.StatusStable, Phase: component.PhaseNone}
	}
}

func statusForPowerOff(a component.Action) component.Status {
	if a == component.ActionPowerOffForcefully {
		return component.StatusPowerOffForcefullyCalled
	}
	return component.StatusPowerOffGracefullyCalled
}
