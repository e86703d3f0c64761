package telemetry

import (
	"strconv"
	"strings"
)

// Color is the display signal attached to the SWR reading.
type Color string

const (
	ColorNominal Color = "nominal"
	ColorWarning Color = "warning"
)

// SWRWarning is the SWR above which the reading is flagged.
const SWRWarning = 2.0

// Missing is displayed for a reading the panel did not provide.
const Missing = "-"

// SWRColor classifies an SWR reading. Unknown SWR is treated as 1.0.
func SWRColor(swr *float64) Color {
	v := 1.0
	if swr != nil {
		v = *swr
	}
	if v > SWRWarning {
		return ColorWarning
	}
	return ColorNominal
}

// View is the display-ready rendering of one cycle.
type View struct {
	ForwardPower     string `json:"forward_power"`
	ReflectedPower   string `json:"reflected_power"`
	InputPower       string `json:"input_power"`
	Gain             string `json:"gain"`
	SWR              string `json:"swr"`
	SWRColor         Color  `json:"swr_color"`
	Temperature      string `json:"temperature"`
	TemperatureTrend string `json:"temperature_trend"`
	DCVoltage        string `json:"dc_voltage"`
	DCCurrent        string `json:"dc_current"`
	BiasLeft         string `json:"bias_left"`
	BiasRight        string `json:"bias_right"`
	Dissipation      string `json:"dissipation"`
	Band             string `json:"band"`
	Mode             string `json:"mode"`
	Tuner            string `json:"tuner"`
	TunerSWR         string `json:"tuner_swr"`
	TunerTemperature string `json:"tuner_temperature"`
	CAT              string `json:"cat"`
	Remote           string `json:"remote"`
}

// Format renders v with the given decimals and suffix, or Missing.
func Format(v *float64, decimals int, suffix string) string {
	if v == nil {
		return Missing
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64) + suffix
}

// BuildView renders a snapshot. Peak-held channels are taken from peaks;
// a channel absent from peaks falls back to the snapshot reading.
func BuildView(s Snapshot, peaks map[Channel]*float64) View {
	held := func(ch Channel) *float64 {
		if v, ok := peaks[ch]; ok {
			return v
		}
		return s.Reading(ch)
	}

	cat := "CAT OFF"
	if s.Indicators.CATActive {
		cat = "CAT ON"
	}
	remote := ""
	if s.Indicators.LastCommandRemote {
		remote = "RC"
	}

	return View{
		ForwardPower:     Format(held(ChannelForwardPower), 0, " W"),
		ReflectedPower:   Format(held(ChannelReflectedPower), 0, " W"),
		InputPower:       Format(held(ChannelInputPower), 0, " W"),
		Gain:             Format(held(ChannelGain), 1, " dB"),
		SWR:              Format(held(ChannelSWR), 2, ""),
		SWRColor:         SWRColor(s.Dashboard.SWR),
		Temperature:      Format(held(ChannelTemperature), 0, "°C"),
		TemperatureTrend: s.Dashboard.TemperatureTrend,
		DCVoltage:        Format(s.Dashboard.DCVoltageV, 1, " V"),
		DCCurrent:        Format(s.Dashboard.DCCurrentA, 1, " A"),
		BiasLeft:         Format(s.Dashboard.BiasLeftV, 2, " V"),
		BiasRight:        Format(s.Dashboard.BiasRightV, 2, " V"),
		Dissipation:      Format(s.Dashboard.DissipatedPowerW, 0, " W"),
		Band:             formatBand(s.Band),
		Mode:             s.Mode,
		Tuner:            s.Tuner.Status,
		TunerSWR:         Format(s.Tuner.SWR, 2, ""),
		TunerTemperature: Format(s.Tuner.TemperatureC, 0, "°C"),
		CAT:              cat,
		Remote:           remote,
	}
}

func formatBand(b Band) string {
	if b.LowMHz == "" && b.HighMHz == "" {
		return ""
	}
	return strings.TrimSpace(b.LowMHz + " – " + b.HighMHz)
}

// Frame is the per-cycle record published to sinks.
type Frame struct {
	ID        string               `json:"id"`
	Timestamp int64                `json:"timestamp"` // epoch milliseconds
	Snapshot  Snapshot             `json:"snapshot"`
	Peaks     map[Channel]*float64 `json:"peaks"`
	View      View                 `json:"view"`
	Buttons   ButtonState          `json:"buttons"`
}

// NoticeLevel grades a Notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a non-fatal, user-facing message (e.g. a button that could not
// be found on the panel).
type Notice struct {
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Level     NoticeLevel `json:"level"`
	Message   string      `json:"message"`
	Outcome   *Outcome    `json:"outcome,omitempty"`
}
