package telemetry

import (
	"reflect"
	"testing"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"123 W", 123, true},
		{"SWR 1.35:1", 1.35, true},
		{"1,35", 1.35, true},
		{"-12.5 dB", -12.5, true},
		{"Temp: 45°C", 45, true},
		{"0", 0, true},
		{"", 0, false},
		{"   \t", 0, false},
		{"n/a", 0, false},
		{"--", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseNumber_FirstMatchWins(t *testing.T) {
	got, ok := ParseNumber("1.8 - 2.0 MHz")
	if !ok || got != 1.8 {
		t.Errorf("got %v, %v; want 1.8", got, ok)
	}
}

func TestToSnapshot_EndToEndNominal(t *testing.T) {
	raw := RawSample{
		"values/forward_power":     "1200 W",
		"values/swr":               "1.8",
		"indicators/cat_is_active": "CAT ON",
	}
	snap := ToSnapshot(raw)

	if snap.Dashboard.ForwardPowerW == nil || *snap.Dashboard.ForwardPowerW != 1200 {
		t.Fatalf("ForwardPowerW: got %v, want 1200", snap.Dashboard.ForwardPowerW)
	}
	if snap.Dashboard.SWR == nil || *snap.Dashboard.SWR != 1.8 {
		t.Fatalf("SWR: got %v, want 1.8", snap.Dashboard.SWR)
	}
	if !snap.Indicators.CATActive {
		t.Error("CATActive: got false, want true")
	}
	if c := SWRColor(snap.Dashboard.SWR); c != ColorNominal {
		t.Errorf("SWRColor: got %s, want %s", c, ColorNominal)
	}
}

func TestToSnapshot_EndToEndWarning(t *testing.T) {
	snap := ToSnapshot(RawSample{"values/swr": "2.5"})
	if c := SWRColor(snap.Dashboard.SWR); c != ColorWarning {
		t.Errorf("SWRColor: got %s, want %s", c, ColorWarning)
	}
}

func TestToSnapshot_RootedKeys(t *testing.T) {
	raw := RawSample{
		Root + KeyBandLow:          "1.8 MHz",
		Root + KeyBandHigh:         "2.0 MHz",
		Root + KeyMode:             "OPERATE",
		Root + KeyPowerGain:        "12,5 dB",
		Root + KeyTemperatureTrend: "rising",
		Root + KeyTunerStatus:      "BYPASS",
		Root + KeyTunerSWR:         "1.12",
		Root + KeyTunerTemperature: "38 °C",
		Root + KeyLastCmdRemote:    "rc",
	}
	snap := ToSnapshot(raw)

	if snap.Band.LowMHz != "1.8 MHz" || snap.Band.HighMHz != "2.0 MHz" {
		t.Errorf("Band: got %+v", snap.Band)
	}
	if snap.Mode != "OPERATE" {
		t.Errorf("Mode: got %q", snap.Mode)
	}
	if snap.Dashboard.GainDB == nil || *snap.Dashboard.GainDB != 12.5 {
		t.Errorf("GainDB: got %v, want 12.5", snap.Dashboard.GainDB)
	}
	if snap.Dashboard.TemperatureTrend != "rising" {
		t.Errorf("TemperatureTrend: got %q", snap.Dashboard.TemperatureTrend)
	}
	if snap.Tuner.Status != "BYPASS" {
		t.Errorf("Tuner.Status: got %q", snap.Tuner.Status)
	}
	if snap.Tuner.SWR == nil || *snap.Tuner.SWR != 1.12 {
		t.Errorf("Tuner.SWR: got %v", snap.Tuner.SWR)
	}
	if snap.Tuner.TemperatureC == nil || *snap.Tuner.TemperatureC != 38 {
		t.Errorf("Tuner.TemperatureC: got %v", snap.Tuner.TemperatureC)
	}
	if !snap.Indicators.LastCommandRemote {
		t.Error("LastCommandRemote: got false, want true (case-insensitive)")
	}
}

func TestToSnapshot_RootedKeyWinsOverShortKey(t *testing.T) {
	raw := RawSample{
		Root + KeySWR: "1.5",
		"values/swr":  "3.0",
	}
	snap := ToSnapshot(raw)
	if snap.Dashboard.SWR == nil || *snap.Dashboard.SWR != 1.5 {
		t.Errorf("SWR: got %v, want 1.5", snap.Dashboard.SWR)
	}
}

func TestToSnapshot_MissingKeys(t *testing.T) {
	snap := ToSnapshot(RawSample{"unrelated/key": "42"})

	if !reflect.DeepEqual(snap, Snapshot{}) {
		t.Errorf("expected zero snapshot for unknown keys, got %+v", snap)
	}
	if snap.Indicators.CATActive || snap.Indicators.LastCommandRemote {
		t.Error("flags must default to false")
	}
}

func TestToSnapshot_NilSample(t *testing.T) {
	snap := ToSnapshot(nil)
	if snap.Dashboard.ForwardPowerW != nil {
		t.Error("expected nil ForwardPowerW")
	}
}

func TestToSnapshot_BlankNumbersAreNil(t *testing.T) {
	snap := ToSnapshot(RawSample{
		"values/forward_power":   "   ",
		"values/reflected_power": "",
		"values/input_power":     "--- W",
	})
	if snap.Dashboard.ForwardPowerW != nil || snap.Dashboard.ReflectedPowerW != nil || snap.Dashboard.InputPowerW != nil {
		t.Errorf("expected nil readings, got %+v", snap.Dashboard)
	}
}

func TestToSnapshot_Pure(t *testing.T) {
	raw := RawSample{
		"values/forward_power": "800 W",
		"values/swr":           "1,25",
		"atu/status":           "TUNED",
	}
	a := ToSnapshot(raw)
	b := ToSnapshot(raw)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("ToSnapshot not idempotent: %+v vs %+v", a, b)
	}
	if len(raw) != 3 {
		t.Error("ToSnapshot must not mutate its input")
	}
}

func TestIndicatorFlags(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"CAT ON", true},
		{"CAT OFF", false},
		{"cat on", true},
		{"", false},
	}
	for _, tt := range tests {
		snap := ToSnapshot(RawSample{"indicators/cat_is_active": tt.text})
		if snap.Indicators.CATActive != tt.want {
			t.Errorf("cat_is_active=%q: got %v, want %v", tt.text, snap.Indicators.CATActive, tt.want)
		}
	}
}

func TestReading_UnknownChannel(t *testing.T) {
	if v := (Snapshot{}).Reading("nope"); v != nil {
		t.Errorf("unknown channel: got %v, want nil", v)
	}
}
