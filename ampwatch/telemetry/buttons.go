package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Predicate selects a panel button by its caption. A button matches when
// its trimmed text equals one of Exact, or its raw text contains Contains.
type Predicate struct {
	Exact    []string
	Contains string
}

var (
	StandbyButton = Predicate{Exact: []string{"OPERATE", "STANDBY"}}
	BypassButton  = Predicate{Contains: "BYPASS"}
	PowerButton   = Predicate{Exact: []string{"POWER OFF", "POWER ON"}}
	TuneButton    = Predicate{Exact: []string{"TUNE"}}
	OKButton      = Predicate{Exact: []string{"OK"}}
)

// Match applies the predicate to a button's text content.
func (p Predicate) Match(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, e := range p.Exact {
		if trimmed == e {
			return true
		}
	}
	return p.Contains != "" && strings.Contains(text, p.Contains)
}

// JS renders the predicate as a JavaScript boolean expression over the
// element bound to v.
func (p Predicate) JS(v string) string {
	var terms []string
	for _, e := range p.Exact {
		terms = append(terms, fmt.Sprintf("%s.textContent.trim() === %s", v, jsString(e)))
	}
	if p.Contains != "" {
		terms = append(terms, fmt.Sprintf("%s.textContent.includes(%s)", v, jsString(p.Contains)))
	}
	if len(terms) == 0 {
		return "false"
	}
	return strings.Join(terms, " || ")
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// ButtonState holds the captions of the mode-bearing panel buttons. An
// empty caption means the button was not found this cycle.
type ButtonState struct {
	Standby string `json:"standby"`
	Bypass  string `json:"bypass"`
	Power   string `json:"power"`
}

// Merge overlays next onto s, keeping the previous caption wherever next
// is empty.
func (s ButtonState) Merge(next ButtonState) ButtonState {
	if next.Standby != "" {
		s.Standby = next.Standby
	}
	if next.Bypass != "" {
		s.Bypass = next.Bypass
	}
	if next.Power != "" {
		s.Power = next.Power
	}
	return s
}

// Action is an operator command clicked through on the panel.
type Action string

const (
	ActionStandby Action = "standby"
	ActionTune    Action = "tune"
	ActionBypass  Action = "bypass"
	ActionPower   Action = "power"
)

// Actions lists every supported action.
var Actions = []Action{ActionStandby, ActionTune, ActionBypass, ActionPower}

// Predicate returns the button predicate for an action.
func (a Action) Predicate() (Predicate, bool) {
	switch a {
	case ActionStandby:
		return StandbyButton, true
	case ActionTune:
		return TuneButton, true
	case ActionBypass:
		return BypassButton, true
	case ActionPower:
		return PowerButton, true
	}
	return Predicate{}, false
}

// ParseAction resolves a case-insensitive action name.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	_, ok := a.Predicate()
	return a, ok
}

// OutcomeStatus is the result class of an action.
type OutcomeStatus string

const (
	StatusClicked   OutcomeStatus = "clicked"
	StatusNotFound  OutcomeStatus = "not_found"
	StatusCancelled OutcomeStatus = "cancelled"
)

// Outcome reports what an action did on the panel.
type Outcome struct {
	Action Action        `json:"action"`
	Status OutcomeStatus `json:"status"`
	Label  string        `json:"label,omitempty"`
}
