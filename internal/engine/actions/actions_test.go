package actions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/clients/bss"
	"github.com/hpc-bos/bos/internal/engine/clients/cfs"
	"github.com/hpc-bos/bos/internal/engine/clients/pcs"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/hpc-bos/bos/internal/engine/tokens"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// TestPowerOnStagesGroupsAndTransitionsOnce covers the clean power-on
// scenario: two nodes sharing one boot artifact tuple are staged once
// with BSS, and the resulting token is recorded on both.
func TestPowerOnStagesGroupsAndTransitionsOnce(t *testing.T) {
	var patchCount int
	bssSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		patchCount++
		w.Header().Set("bss-referral-token", "tok-1")
		w.WriteHeader(http.StatusOK)
	}))
	defer bssSrv.Close()

	var transitionCount int
	pcsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transitionCount++
		w.Write([]byte(`{"transitionID":"t-1","operation":"On"}`))
	}))
	defer pcsSrv.Close()

	a := &PowerOn{
		BSS:    bss.New(bssSrv.URL),
		PCS:    pcs.New(pcsSrv.URL),
		Tokens: tokens.NewMemTable(),
		Log:    logr.Discard(),
		Now:    fixedClock(time.Unix(1000, 0)),
	}

	in := []component.Component{
		{ID: "a", DesiredState: component.DesiredState{BootArtifacts: component.BootArtifacts{Kernel: "k1", Initrd: "i1"}}},
		{ID: "b", DesiredState: component.DesiredState{BootArtifacts: component.BootArtifacts{Kernel: "k1", Initrd: "i1"}}},
	}

	updates, err := a.Act(context.Background(), options.Defaults(), in)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if patchCount != 1 {
		t.Errorf("expected BSS staged once for the shared artifact group, got %d calls", patchCount)
	}
	if transitionCount != 1 {
		t.Errorf("expected a single PCS transition for both components, got %d calls", transitionCount)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	for _, u := range updates {
		if u.DesiredState.BootArtifacts.BSSToken != "tok-1" {
			t.Errorf("component %s missing bss token: %+v", u.ID, u.DesiredState)
		}
		if u.LastAction.Action != component.ActionPowerOn {
			t.Errorf("component %s last_action = %q, want power_on", u.ID, u.LastAction.Action)
		}
	}

	got, err := a.Tokens.Get(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("token table lookup: %v", err)
	}
	if got.Kernel != "k1" || got.Initrd != "i1" {
		t.Errorf("token record = %+v, want kernel=k1 initrd=i1", got)
	}
}

func TestPowerOnSkipsComponentsWithoutBootableArtifacts(t *testing.T) {
	bssSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("BSS should never be called for a component with no bootable artifacts")
	}))
	defer bssSrv.Close()
	pcsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("PCS should never be called when nothing was staged")
	}))
	defer pcsSrv.Close()

	a := &PowerOn{BSS: bss.New(bssSrv.URL), PCS: pcs.New(pcsSrv.URL), Tokens: tokens.NewMemTable(), Log: logr.Discard()}
	updates, err := a.Act(context.Background(), options.Defaults(), []component.Component{{ID: "a"}})
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("expected no updates for a non-bootable component, got %v", updates)
	}
}

func TestGracefulThenForcefulPowerOff(t *testing.T) {
	var op string
	pcsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transitionID":"t","operation":"` + op + `"}`))
	}))
	defer pcsSrv.Close()
	client := pcs.New(pcsSrv.URL)

	op = "Soft-Off"
	graceful := NewGracefulPowerOff(client, logr.Discard())
	in := []component.Component{{ID: "a", DesiredState: component.DesiredState{}, ActualState: component.ActualState{BootArtifacts: component.BootArtifacts{Kernel: "k"}}}}
	updates, err := graceful.Act(context.Background(), options.Defaults(), in)
	if err != nil {
		t.Fatalf("graceful Act: %v", err)
	}
	if len(updates) != 1 || updates[0].LastAction.Action != component.ActionPowerOffGracefully {
		t.Fatalf("graceful update = %+v, want power_off_gracefully", updates)
	}

	op = "Force-Off"
	forceful := NewForcefulPowerOff(client, logr.Discard())
	in[0].LastAction = *updates[0].LastAction
	updates, err = forceful.Act(context.Background(), options.Defaults(), in)
	if err != nil {
		t.Fatalf("forceful Act: %v", err)
	}
	if len(updates) != 1 || updates[0].LastAction.Action != component.ActionPowerOffForcefully {
		t.Fatalf("forceful update = %+v, want power_off_forcefully", updates)
	}
}

func TestConfigurationPatchesCFSAndLeavesLastActionUntouched(t *testing.T) {
	var gotPatches []cfs.Patch
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPatches)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := &Configuration{CFS: cfs.New(srv.URL), Log: logr.Discard()}
	in := []component.Component{{ID: "a", DesiredState: component.DesiredState{Configuration: "cfg-1"}}}

	updates, err := a.Act(context.Background(), options.Defaults(), in)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("updates = %+v, want none: configuration must not set last_action", updates)
	}
	if len(gotPatches) != 1 || gotPatches[0].ID != "a" || gotPatches[0].DesiredConfig != "cfg-1" {
		t.Fatalf("cfs patch = %+v, want a single patch for component a", gotPatches)
	}
}

func TestDisableRespectsDisableComponentsOnCompletionGate(t *testing.T) {
	in := []component.Component{{ID: "a", Enabled: true}}
	a := &Disable{Log: logr.Discard(), Now: fixedClock(time.Unix(3000, 0))}

	snapOff := options.Defaults()
	snapOff.DisableComponentsOnCompletion = false
	updates, err := a.Act(context.Background(), snapOff, in)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if len(updates) != 1 || updates[0].Enabled != nil {
		t.Errorf("with the gate off, Enabled should be untouched: %+v", updates)
	}
	if updates[0].Status == nil || updates[0].Status.Status != component.StatusStable {
		t.Errorf("status should still be recomputed: %+v", updates[0].Status)
	}

	snapOn := options.Defaults()
	snapOn.DisableComponentsOnCompletion = true
	updates, err = a.Act(context.Background(), snapOn, in)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if len(updates) != 1 || updates[0].Enabled == nil || *updates[0].Enabled {
		t.Errorf("with the gate on, Enabled should be set false: %+v", updates)
	}
}

func TestDeriveStatusFailedTakesPriority(t *testing.T) {
	c := component.Component{
		DesiredState: component.DesiredState{Configuration: "cfg"},
		Error:        "node unreachable",
	}
	got := DeriveStatus(c, time.Unix(10, 0))
	if got.Status != component.StatusFailed {
		t.Errorf("DeriveStatus = %+v, want failed", got)
	}
}

func TestDeriveStatusHonorsOverride(t *testing.T) {
	c := component.Component{Status: component.ComponentStatus{StatusOverride: component.StatusOnHold}}
	got := DeriveStatus(c, time.Unix(10, 0))
	if got.Status != component.StatusOnHold || got.StatusOverride != component.StatusOnHold {
		t.Errorf("DeriveStatus = %+v, want on_hold override preserved", got)
	}
}

func TestStatusOperatorSkipsUnchangedComponents(t *testing.T) {
	a := &Status{Log: logr.Discard(), Now: fixedClock(time.Unix(10, 0))}
	stable := component.Component{ID: "a", Status: component.ComponentStatus{Status: component.StatusStable, Phase: component.PhaseNone}}

	updates, err := a.Act(context.Background(), options.Defaults(), []component.Component{stable})
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("expected no update for an already-stable component, got %v", updates)
	}
}
