package telemetry

import (
	"regexp"
	"strconv"
	"strings"
)

// Band holds the current band edges as displayed, units included.
type Band struct {
	LowMHz  string `json:"low_mhz"`
	HighMHz string `json:"high_mhz"`
}

// Indicators are derived from substring matches on panel text.
type Indicators struct {
	CATActive         bool `json:"cat_active"`
	LastCommandRemote bool `json:"last_command_remote"`
}

// Dashboard holds the numeric readings of the amplifier. A nil field means
// the panel showed nothing parseable for it.
type Dashboard struct {
	ForwardPowerW    *float64 `json:"forward_power_w"`
	ReflectedPowerW  *float64 `json:"reflected_power_w"`
	InputPowerW      *float64 `json:"input_power_w"`
	DissipatedPowerW *float64 `json:"dissipated_power_w"`
	SWR              *float64 `json:"swr"`
	GainDB           *float64 `json:"gain_db"`
	BiasLeftV        *float64 `json:"bias_left_v"`
	BiasRightV       *float64 `json:"bias_right_v"`
	DCVoltageV       *float64 `json:"dc_voltage_v"`
	DCCurrentA       *float64 `json:"dc_current_a"`
	TemperatureC     *float64 `json:"temperature_c"`
	TemperatureTrend string   `json:"temperature_trend"`
}

// Tuner is the antenna tuner section of the panel.
type Tuner struct {
	Status       string   `json:"status"`
	SWR          *float64 `json:"swr"`
	TemperatureC *float64 `json:"temperature_c"`
}

// Snapshot is the typed view of one RawSample.
type Snapshot struct {
	Band       Band       `json:"band"`
	Indicators Indicators `json:"indicators"`
	Mode       string     `json:"mode"`
	Dashboard  Dashboard  `json:"dashboard"`
	Tuner      Tuner      `json:"tuner"`
}

var numberRe = regexp.MustCompile(`-?\d+(\.\d+)?`)

// ParseNumber extracts the first decimal number embedded in text, ignoring
// labels and unit suffixes ("SWR 1.35:1" is 1.35). A decimal comma is
// accepted. It reports false for empty, blank or non-numeric text.
func ParseNumber(text string) (float64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	m := numberRe.FindString(strings.ReplaceAll(text, ",", "."))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func number(text string) *float64 {
	f, ok := ParseNumber(text)
	if !ok {
		return nil
	}
	return &f
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToUpper(s), strings.ToUpper(substr))
}

// ToSnapshot maps a RawSample onto a Snapshot. It never fails: missing text
// fields are "" and missing numbers are nil. Unknown keys are ignored.
func ToSnapshot(raw RawSample) Snapshot {
	return Snapshot{
		Band: Band{
			LowMHz:  raw.Get(KeyBandLow),
			HighMHz: raw.Get(KeyBandHigh),
		},
		Indicators: Indicators{
			CATActive:         containsFold(raw.Get(KeyCATActive), "ON"),
			LastCommandRemote: containsFold(raw.Get(KeyLastCmdRemote), "RC"),
		},
		Mode: raw.Get(KeyMode),
		Dashboard: Dashboard{
			ForwardPowerW:    number(raw.Get(KeyForwardPower)),
			ReflectedPowerW:  number(raw.Get(KeyReflectedPower)),
			InputPowerW:      number(raw.Get(KeyInputPower)),
			DissipatedPowerW: number(raw.Get(KeyDissipatedPower)),
			SWR:              number(raw.Get(KeySWR)),
			GainDB:           number(raw.Get(KeyPowerGain)),
			BiasLeftV:        number(raw.Get(KeyBiasLeft)),
			BiasRightV:       number(raw.Get(KeyBiasRight)),
			DCVoltageV:       number(raw.Get(KeyDCVoltage)),
			DCCurrentA:       number(raw.Get(KeyDCCurrent)),
			TemperatureC:     number(raw.Get(KeyTemperature)),
			TemperatureTrend: raw.Get(KeyTemperatureTrend),
		},
		Tuner: Tuner{
			Status:       raw.Get(KeyTunerStatus),
			SWR:          number(raw.Get(KeyTunerSWR)),
			TemperatureC: number(raw.Get(KeyTunerTemperature)),
		},
	}
}

// Channel names a reading that is peak-held before display.
type Channel string

const (
	ChannelForwardPower   Channel = "forward_power"
	ChannelReflectedPower Channel = "reflected_power"
	ChannelInputPower     Channel = "input_power"
	ChannelGain           Channel = "gain"
	ChannelSWR            Channel = "swr"
	ChannelTemperature    Channel = "temperature"
)

// PeakChannels is the fixed set of smoothed channels.
var PeakChannels = []Channel{
	ChannelForwardPower,
	ChannelReflectedPower,
	ChannelInputPower,
	ChannelGain,
	ChannelSWR,
	ChannelTemperature,
}

// Reading returns the snapshot value feeding a channel.
func (s Snapshot) Reading(ch Channel) *float64 {
	switch ch {
	case ChannelForwardPower:
		return s.Dashboard.ForwardPowerW
	case ChannelReflectedPower:
		return s.Dashboard.ReflectedPowerW
	case ChannelInputPower:
		return s.Dashboard.InputPowerW
	case ChannelGain:
		return s.Dashboard.GainDB
	case ChannelSWR:
		return s.Dashboard.SWR
	case ChannelTemperature:
		return s.Dashboard.TemperatureC
	}
	return nil
}
