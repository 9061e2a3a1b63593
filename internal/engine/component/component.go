// Package component defines the unit of reconciliation: the component
// record and the fixed vocabularies (actions, phases, statuses) that
// make up its state machine.
package component

import "time"

// Action is the closed set of actions an operator can record against a
// component's last_action field.
type Action string

const (
	ActionNone                Action = ""
	ActionPowerOn             Action = "power_on"
	ActionPowerOffGracefully  Action = "power_off_gracefully"
	ActionPowerOffForcefully  Action = "power_off_forcefully"
	ActionConfiguring         Action = "configuring"
	ActionSessionSetup        Action = "session_setup"
	ActionActualStateCleanup  Action = "actual_state_cleanup"
	ActionNewlyDiscovered     Action = "newly_discovered"
	ActionRecovery            Action = "recovery"
)

// Phase is the closed set of phases surfaced on Status.
type Phase string

const (
	PhaseNone       Phase = ""
	PhasePoweringOn Phase = "powering_on"
	PhasePoweringOff Phase = "powering_off"
	PhaseConfiguring Phase = "configuring"
)

// Status is the closed set of derived status values.
type Status string

const (
	StatusPowerOnPending          Status = "power_on_pending"
	StatusPowerOnCalled           Status = "power_on_called"
	StatusPowerOffPending         Status = "power_off_pending"
	StatusPowerOffGracefullyCalled Status = "power_off_gracefully_called"
	StatusPowerOffForcefullyCalled Status = "power_off_forcefully_called"
	StatusConfiguring             Status = "configuring"
	StatusStable                  Status = "stable"
	StatusFailed                  Status = "failed"
	StatusOnHold                  Status = "on_hold"
)

// PowerState is reported by PCS, never persisted directly on the
// component record but used throughout the filter library.
type PowerState string

const (
	PowerOn        PowerState = "on"
	PowerOff       PowerState = "off"
	PowerUndefined PowerState = "undefined"
)

// BootArtifacts names the kernel/initrd/params tuple that identifies a
// boot, plus the BSS token assigned to it once staged.
type BootArtifacts struct {
	Kernel           string `json:"kernel,omitempty"`
	Initrd           string `json:"initrd,omitempty"`
	KernelParameters string `json:"kernel_parameters,omitempty"`
	BSSToken         string `json:"bss_token,omitempty"`
}

// IsZero reports whether no boot artifact fields are set.
func (b BootArtifacts) IsZero() bool {
	return b == BootArtifacts{}
}

// ArtifactKey is the unordered grouping key PowerOn uses to batch BSS
// PUT requests: nodes sharing the same (kernel, initrd, params) tuple
// are staged together.
type ArtifactKey struct {
	Kernel           string
	Initrd           string
	KernelParameters string
}

func (b BootArtifacts) Key() ArtifactKey {
	return ArtifactKey{Kernel: b.Kernel, Initrd: b.Initrd, KernelParameters: b.KernelParameters}
}

// HasBootable reports whether the tuple has enough information for BSS
// to stage a boot. Per spec.md §4.3, a node lacking both kernel and
// initrd and with empty kernel parameters is skipped, not an error.
func (b BootArtifacts) HasBootable() bool {
	return b.Kernel != "" || b.Initrd != "" || b.KernelParameters != ""
}

// DesiredState is the node's desired boot + configuration target.
// The zero value means "no desired boot."
type DesiredState struct {
	BootArtifacts BootArtifacts `json:"boot_artifacts,omitempty"`
	Configuration string        `json:"configuration,omitempty"`
}

func (d DesiredState) IsZero() bool { return d.BootArtifacts.IsZero() && d.Configuration == "" }

// ActualState is the last state reported by the node, refreshed only
// by the reporter endpoint or cleared by ActualStateCleanup.
type ActualState struct {
	BootArtifacts BootArtifacts `json:"boot_artifacts,omitempty"`
	LastUpdated   time.Time     `json:"last_updated,omitempty"`
}

func (a ActualState) IsZero() bool { return a.BootArtifacts.IsZero() && a.LastUpdated.IsZero() }

// BootArtifactsMatch compares only the boot-artifact identity (kernel,
// initrd, params), ignoring the BSS token, matching
// BootArtifactStatesMatch in spec.md §4.9.
func BootArtifactsMatch(d DesiredState, a ActualState) bool {
	return d.BootArtifacts.Key() == a.BootArtifacts.Key()
}

// LastAction records the most recent action taken on a component and
// when, along with retry bookkeeping.
type LastAction struct {
	Action      Action    `json:"action,omitempty"`
	Failed      bool      `json:"failed,omitempty"`
	NumAttempts int       `json:"num_attempts,omitempty"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// ComponentStatus is the derived summary recomputed on every tick.
type ComponentStatus struct {
	Status         Status `json:"status,omitempty"`
	StatusOverride Status `json:"status_override,omitempty"`
	Phase          Phase  `json:"phase,omitempty"`
}

// Component is the unit of reconciliation, keyed by the HSM-assigned
// node identifier.
type Component struct {
	ID           string          `json:"id"`
	Enabled      bool            `json:"enabled"`
	DesiredState DesiredState    `json:"desired_state"`
	ActualState  ActualState     `json:"actual_state"`
	StagedState  DesiredState    `json:"staged_state"`
	LastAction   LastAction      `json:"last_action"`
	Status       ComponentStatus `json:"status"`
	Session      string          `json:"session,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Clone returns a deep-enough copy for safe mutation by a single
// operator tick (no shared slices/maps exist on Component today, so a
// value copy suffices, but Clone exists so callers never rely on that).
func (c Component) Clone() Component { return c }
