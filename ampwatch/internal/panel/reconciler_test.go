package panel

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

func TestReconcile_OnlyStandbyPresent(t *testing.T) {
	p := newFakePanel("STANDBY")
	st, err := NewReconciler(p.serve(t)).Reconcile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := telemetry.ButtonState{Standby: "STANDBY"}
	if st != want {
		t.Errorf("got %+v, want %+v", st, want)
	}

	// Presentation keeps the previous captions for the missing buttons.
	prev := telemetry.ButtonState{Standby: "OPERATE", Bypass: "BYPASS", Power: "POWER OFF"}
	merged := prev.Merge(st)
	if merged.Standby != "STANDBY" || merged.Bypass != "BYPASS" || merged.Power != "POWER OFF" {
		t.Errorf("merged = %+v", merged)
	}
}

func TestReconcile_AllButtons(t *testing.T) {
	p := newFakePanel("TUNE", "OPERATE", "ATU BYPASS", "POWER OFF")
	st, err := NewReconciler(p.serve(t)).Reconcile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := telemetry.ButtonState{Standby: "OPERATE", Bypass: "ATU BYPASS", Power: "POWER OFF"}
	if st != want {
		t.Errorf("got %+v, want %+v", st, want)
	}
}

func TestReconcile_RejectsInvalidCaptions(t *testing.T) {
	s := &scriptedSurface{ready: true, result: `{"standby":"standby","bypass":"TUNE","power":"POWER"}`}
	st, err := NewReconciler(s).Reconcile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st != (telemetry.ButtonState{}) {
		t.Errorf("invalid captions must be dropped, got %+v", st)
	}
}

func TestReconcile_Errors(t *testing.T) {
	s := &scriptedSurface{ready: true, result: "[1,2"}
	if _, err := NewReconciler(s).Reconcile(context.Background()); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
	s = &scriptedSurface{ready: true, err: errors.New("gone")}
	if _, err := NewReconciler(s).Reconcile(context.Background()); err == nil {
		t.Error("expected query error")
	}
}
