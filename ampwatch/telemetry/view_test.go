package telemetry

import "testing"

func ptr(v float64) *float64 { return &v }

func TestSWRColor(t *testing.T) {
	tests := []struct {
		swr  *float64
		want Color
	}{
		{nil, ColorNominal},
		{ptr(1.0), ColorNominal},
		{ptr(2.0), ColorNominal},
		{ptr(2.01), ColorWarning},
		{ptr(3.5), ColorWarning},
	}
	for _, tt := range tests {
		if got := SWRColor(tt.swr); got != tt.want {
			t.Errorf("SWRColor(%v) = %s, want %s", tt.swr, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(ptr(1199.6), 0, " W"); got != "1200 W" {
		t.Errorf("power: got %q", got)
	}
	if got := Format(ptr(12.34), 1, " dB"); got != "12.3 dB" {
		t.Errorf("gain: got %q", got)
	}
	if got := Format(ptr(1.8), 2, ""); got != "1.80" {
		t.Errorf("swr: got %q", got)
	}
	if got := Format(nil, 0, " W"); got != Missing {
		t.Errorf("missing: got %q", got)
	}
}

func TestBuildView_UsesPeaks(t *testing.T) {
	snap := ToSnapshot(RawSample{
		"values/forward_power":          "900 W",
		"values/swr":                    "2.5",
		"values/temperature_c":          "44.6",
		"values/hv/hv1":                 "53.04",
		"band/band_low_border_mhz":      "14.000",
		"band/band_high_border_mhz":     "14.350",
		"indicators/last_cmd_is_remote": "RC",
	})
	peaks := map[Channel]*float64{
		ChannelForwardPower: ptr(1200),
		ChannelSWR:          ptr(1.9),
	}
	v := BuildView(snap, peaks)

	if v.ForwardPower != "1200 W" {
		t.Errorf("ForwardPower: got %q, want peak value", v.ForwardPower)
	}
	if v.SWR != "1.90" {
		t.Errorf("SWR: got %q", v.SWR)
	}
	// Color follows the instantaneous reading, not the held one.
	if v.SWRColor != ColorWarning {
		t.Errorf("SWRColor: got %s", v.SWRColor)
	}
	if v.Temperature != "45°C" {
		t.Errorf("Temperature: got %q (snapshot fallback)", v.Temperature)
	}
	if v.DCVoltage != "53.0 V" {
		t.Errorf("DCVoltage: got %q", v.DCVoltage)
	}
	if v.ReflectedPower != Missing {
		t.Errorf("ReflectedPower: got %q", v.ReflectedPower)
	}
	if v.Band != "14.000 – 14.350" {
		t.Errorf("Band: got %q", v.Band)
	}
	if v.CAT != "CAT OFF" || v.Remote != "RC" {
		t.Errorf("CAT/Remote: got %q/%q", v.CAT, v.Remote)
	}
}

func TestBuildView_Empty(t *testing.T) {
	v := BuildView(Snapshot{}, nil)
	if v.Band != "" {
		t.Errorf("Band: got %q", v.Band)
	}
	if v.SWRColor != ColorNominal {
		t.Errorf("SWRColor: got %s", v.SWRColor)
	}
	if v.Gain != Missing || v.TunerSWR != Missing {
		t.Errorf("expected missing markers, got %+v", v)
	}
}
