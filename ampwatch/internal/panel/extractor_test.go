package panel

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

func TestExtract_StaticPanel(t *testing.T) {
	p := newFakePanel("OPERATE")
	ext := NewExtractor(p.serve(t))

	raw, err := ext.Extract(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := raw["dashboard/values/forward_power"]; got != "1200 W" {
		t.Errorf("forward_power: got %q, want whitespace collapsed", got)
	}
	if got, ok := raw["dashboard/values/temperature_rel"]; !ok || got != "" {
		t.Errorf("empty element: got %q, %v", got, ok)
	}

	snap := telemetry.ToSnapshot(raw)
	if snap.Dashboard.ForwardPowerW == nil || *snap.Dashboard.ForwardPowerW != 1200 {
		t.Errorf("ForwardPowerW = %v", snap.Dashboard.ForwardPowerW)
	}
	if !snap.Indicators.CATActive {
		t.Error("CATActive must be true")
	}
}

func TestExtract_NotReady(t *testing.T) {
	s := &scriptedSurface{ready: false, result: `{"k":"v"}`}
	raw, err := NewExtractor(s).Extract(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 0 {
		t.Errorf("expected empty sample, got %v", raw)
	}
	if s.queries != 0 {
		t.Error("must not query a surface that is not ready")
	}
}

func TestExtract_WrappedResult(t *testing.T) {
	s := &scriptedSurface{ready: true, result: `"{\"dashboard/values/swr\":\"2.5\"}"`}
	raw, err := NewExtractor(s).Extract(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if raw["dashboard/values/swr"] != "2.5" {
		t.Errorf("got %v", raw)
	}
}

func TestExtract_DecodeError(t *testing.T) {
	s := &scriptedSurface{ready: true, result: `{"unterminated`}
	_, err := NewExtractor(s).Extract(context.Background())
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestExtract_QueryError(t *testing.T) {
	boom := errors.New("boom")
	s := &scriptedSurface{ready: true, err: boom}
	_, err := NewExtractor(s).Extract(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped query error, got %v", err)
	}
	if errors.Is(err, ErrDecode) {
		t.Error("query error must not be classified as decode")
	}
}

func TestExtract_EmptyResult(t *testing.T) {
	s := &scriptedSurface{ready: true, result: ""}
	raw, err := NewExtractor(s).Extract(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 0 {
		t.Errorf("got %v", raw)
	}
}
