// Package telemetry defines the structured types ampwatch produces from an
// amplifier control panel. These are the public contract: consumers (sinks,
// the dashboard, HTTP and MCP clients) import this package to read frames.
package telemetry

import "strings"

// Root is the namespace every tagged field on the panel lives under.
const Root = "$amp/controls/"

// Marker is the DOM attribute that tags a displayable field with its key.
const Marker = "w-val"

// Keys are relative to Root.
const (
	KeyBandLow          = "dashboard/band/band_low_border_mhz"
	KeyBandHigh         = "dashboard/band/band_high_border_mhz"
	KeyCATActive        = "dashboard/indicators/cat_is_active"
	KeyLastCmdRemote    = "dashboard/indicators/last_cmd_is_remote"
	KeyMode             = "dashboard/switches/mode"
	KeyForwardPower     = "dashboard/values/forward_power"
	KeyReflectedPower   = "dashboard/values/reflected_power"
	KeyInputPower       = "dashboard/values/input_power"
	KeyDissipatedPower  = "dashboard/values/dissipated_power"
	KeySWR              = "dashboard/values/swr"
	KeyPowerGain        = "dashboard/values/power_gain"
	KeyBiasLeft         = "dashboard/values/bias/bias_1a"
	KeyBiasRight        = "dashboard/values/bias/bias_1b"
	KeyDCVoltage        = "dashboard/values/hv/hv1"
	KeyDCCurrent        = "dashboard/values/id/id1"
	KeyTemperature      = "dashboard/values/temperature_c"
	KeyTemperatureTrend = "dashboard/values/temperature_rel"
	KeyTunerStatus      = "atu/status"
	KeyTunerSWR         = "atu/measure/values/swr"
	KeyTunerTemperature = "atu/measure/values/temperature"
)

// Keys lists every key the mapper reads.
var Keys = []string{
	KeyBandLow, KeyBandHigh,
	KeyCATActive, KeyLastCmdRemote,
	KeyMode,
	KeyForwardPower, KeyReflectedPower, KeyInputPower, KeyDissipatedPower,
	KeySWR, KeyPowerGain,
	KeyBiasLeft, KeyBiasRight,
	KeyDCVoltage, KeyDCCurrent,
	KeyTemperature, KeyTemperatureTrend,
	KeyTunerStatus, KeyTunerSWR, KeyTunerTemperature,
}

const dashboardPrefix = "dashboard/"

// lookup resolves a relative key against the sample. The rooted form wins,
// then the root-relative form, then (for dashboard keys) the form relative
// to the dashboard namespace.
func (r RawSample) lookup(key string) (string, bool) {
	if v, ok := r[Root+key]; ok {
		return v, true
	}
	if v, ok := r[key]; ok {
		return v, true
	}
	if short, ok := strings.CutPrefix(key, dashboardPrefix); ok {
		if v, ok := r[short]; ok {
			return v, true
		}
	}
	return "", false
}

// Get returns the text for a relative key, or "" when absent.
func (r RawSample) Get(key string) string {
	v, _ := r.lookup(key)
	return v
}
