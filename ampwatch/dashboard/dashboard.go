// Package dashboard is the terminal front-end: a live view of the amplifier
// readings with the button captions and single-key actions.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazyhaar/hamshack/ampwatch"
	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

// powerOffCaption is the caption shown while the amplifier is on.
const powerOffCaption = "POWER OFF"

// actionTimeout bounds one key-triggered action, settle delays included.
const actionTimeout = 10 * time.Second

// --- STYLES ---
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#575B7E")).
			Padding(0, 1)

	labelStyle   = lipgloss.NewStyle().Width(14).Foreground(lipgloss.Color("245"))
	valueStyle   = lipgloss.NewStyle().Width(12).Align(lipgloss.Right).Bold(true)
	nominalStyle = valueStyle.Foreground(lipgloss.Color("#32CD32"))
	warningStyle = valueStyle.Foreground(lipgloss.Color("#FF4500"))

	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("240")).Padding(0, 1)
	buttonStyle = lipgloss.NewStyle().Padding(0, 1)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4500")).Bold(true)
)

// Controller is the part of the monitor the dashboard drives.
type Controller interface {
	Invoke(ctx context.Context, action telemetry.Action, confirm ampwatch.ConfirmFunc) (telemetry.Outcome, error)
	Captions() telemetry.ButtonState
	AmplifierURL() string
}

// --- MESSAGES ---

// FrameMsg delivers a new frame to the model.
type FrameMsg telemetry.Frame

// ButtonsMsg delivers refreshed captions.
type ButtonsMsg telemetry.ButtonState

// NoticeMsg delivers a notice for the status line.
type NoticeMsg telemetry.Notice

type outcomeMsg struct {
	out telemetry.Outcome
	err error
}

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// Sink forwards monitor output to the running program.
func Sink(p Sender) ampwatch.Sink {
	return ampwatch.NewCallbackSink(
		func(_ context.Context, f telemetry.Frame) error {
			p.Send(FrameMsg(f))
			return nil
		},
		func(_ context.Context, b telemetry.ButtonState) error {
			p.Send(ButtonsMsg(b))
			return nil
		},
		func(_ context.Context, n telemetry.Notice) error {
			p.Send(NoticeMsg(n))
			return nil
		},
	)
}

// --- MODEL ---

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctrl       Controller
	frame      telemetry.Frame
	hasFrame   bool
	buttons    telemetry.ButtonState
	status     string
	statusLvl  telemetry.NoticeLevel
	confirming bool
	busy       bool
}

// NewModel creates a dashboard over ctrl.
func NewModel(ctrl Controller) Model {
	return Model{
		ctrl:    ctrl,
		buttons: ctrl.Captions(),
		status:  "connecting to " + ctrl.AmplifierURL(),
	}
}

func (m Model) Init() tea.Cmd { return nil }

// --- UPDATE ---
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case FrameMsg:
		m.frame, m.hasFrame = telemetry.Frame(msg), true
		m.buttons = m.buttons.Merge(msg.Buttons)
		if m.statusLvl == "" && strings.HasPrefix(m.status, "connecting") {
			m.status = ""
		}

	case ButtonsMsg:
		m.buttons = m.buttons.Merge(telemetry.ButtonState(msg))

	case NoticeMsg:
		m.setStatus(msg.Level, msg.Message)

	case outcomeMsg:
		m.busy = false
		switch {
		case msg.err != nil:
			m.setStatus(telemetry.NoticeError, msg.err.Error())
		case msg.out.Status == telemetry.StatusClicked:
			m.setStatus(telemetry.NoticeInfo, fmt.Sprintf("%s: clicked %q", msg.out.Action, msg.out.Label))
		case msg.out.Status == telemetry.StatusNotFound:
			m.setStatus(telemetry.NoticeWarning, fmt.Sprintf("%s button not found", msg.out.Action))
		case msg.out.Status == telemetry.StatusCancelled:
			m.setStatus(telemetry.NoticeInfo, fmt.Sprintf("%s cancelled", msg.out.Action))
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.confirming {
		m.confirming = false
		switch key {
		case "y", "Y":
			return m.invoke(telemetry.ActionPower, true)
		default:
			m.setStatus(telemetry.NoticeInfo, "power off cancelled")
			return m, nil
		}
	}

	switch key {
	case "q", "esc":
		return m, tea.Quit
	case "s":
		return m.invoke(telemetry.ActionStandby, false)
	case "t":
		return m.invoke(telemetry.ActionTune, false)
	case "b":
		return m.invoke(telemetry.ActionBypass, false)
	case "p":
		if m.buttons.Power == powerOffCaption {
			m.confirming = true
			m.status = ""
			return m, nil
		}
		return m.invoke(telemetry.ActionPower, false)
	}
	return m, nil
}

// invoke runs the action off the update loop. confirmed answers the
// actuator's power-off prompt.
func (m Model) invoke(action telemetry.Action, confirmed bool) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	m.setStatus(telemetry.NoticeInfo, fmt.Sprintf("%s…", action))

	ctrl := m.ctrl
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		confirm := func(context.Context, string) bool { return confirmed }
		out, err := ctrl.Invoke(ctx, action, confirm)
		return outcomeMsg{out: out, err: err}
	}
}

func (m *Model) setStatus(level telemetry.NoticeLevel, s string) {
	m.status, m.statusLvl = s, level
}

// --- VIEW ---
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ampwatch " + m.ctrl.AmplifierURL()))
	b.WriteString("\n\n")

	if !m.hasFrame {
		b.WriteString(infoStyle.Render("waiting for the panel…"))
		b.WriteString("\n\n")
	} else {
		v := m.frame.View
		swr := nominalStyle
		if v.SWRColor == telemetry.ColorWarning {
			swr = warningStyle
		}
		rows := [][2]string{
			{"Forward", v.ForwardPower},
			{"Reflected", v.ReflectedPower},
			{"Input", v.InputPower},
			{"Gain", v.Gain},
		}
		for _, r := range rows {
			b.WriteString(row(r[0], valueStyle.Render(r[1])))
		}
		b.WriteString(row("SWR", swr.Render(v.SWR)))
		for _, r := range [][2]string{
			{"Temperature", v.Temperature + " " + v.TemperatureTrend},
			{"DC", v.DCVoltage + " " + v.DCCurrent},
			{"Bias", v.BiasLeft + " " + v.BiasRight},
			{"Dissipation", v.Dissipation},
			{"Band", v.Band},
			{"Mode", v.Mode},
			{"Tuner", strings.TrimSpace(v.Tuner + " " + v.TunerSWR + " " + v.TunerTemperature)},
		} {
			b.WriteString(row(r[0], valueStyle.Render(strings.TrimSpace(r[1]))))
		}
		b.WriteString(row("", infoStyle.Render(strings.TrimSpace(v.CAT+"  "+v.Remote))))
		b.WriteString("\n")
	}

	b.WriteString(m.renderButtons())
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(infoStyle.Render("q: quit"))
	return b.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

func (m Model) renderButtons() string {
	caption := func(s, fallback string) string {
		if s == "" {
			return fallback
		}
		return s
	}
	items := []string{
		keyStyle.Render("s") + buttonStyle.Render(caption(m.buttons.Standby, "STANDBY")),
		keyStyle.Render("t") + buttonStyle.Render("TUNE"),
		keyStyle.Render("b") + buttonStyle.Render(caption(m.buttons.Bypass, "BYPASS")),
		keyStyle.Render("p") + buttonStyle.Render(caption(m.buttons.Power, "POWER")),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, items...)
}

func (m Model) renderStatus() string {
	if m.confirming {
		return promptStyle.Render("Power off the amplifier? (y/n)")
	}
	switch m.statusLvl {
	case telemetry.NoticeError:
		return errStyle.Render(m.status)
	case telemetry.NoticeWarning:
		return warnStyle.Render(m.status)
	default:
		return infoStyle.Render(m.status)
	}
}
