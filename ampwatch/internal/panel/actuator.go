package panel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/hamshack/ampwatch/internal/surface"
	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

const (
	DefaultConfirmDelay = 100 * time.Millisecond
	DefaultSettleDelay  = 500 * time.Millisecond
	DefaultQueryTimeout = 3 * time.Second
)

// PowerOffCaption is the power button caption shown while the amplifier is
// on. Clicking it turns the amplifier off, so it needs confirmation.
const PowerOffCaption = "POWER OFF"

// ConfirmFunc asks the operator to confirm a risky action.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// ActuatorConfig configures an Actuator.
type ActuatorConfig struct {
	// ConfirmDelay separates the power click from the in-page OK click.
	ConfirmDelay time.Duration
	// SettleDelay is waited before re-reading the captions after power.
	SettleDelay time.Duration
	// QueryTimeout bounds each page query.
	QueryTimeout time.Duration
	// Captions returns the captions currently displayed to the operator.
	Captions func() telemetry.ButtonState
	// OnButtons receives the captions read after a power action settles.
	OnButtons func(telemetry.ButtonState)
	Logger    *slog.Logger
}

func (c *ActuatorConfig) defaults() {
	if c.ConfirmDelay <= 0 {
		c.ConfirmDelay = DefaultConfirmDelay
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.Captions == nil {
		c.Captions = func() telemetry.ButtonState { return telemetry.ButtonState{} }
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Actuator clicks panel buttons on the operator's behalf.
type Actuator struct {
	surf surface.Surface
	rec  *Reconciler
	cfg  ActuatorConfig
}

// NewActuator creates an Actuator over surf.
func NewActuator(surf surface.Surface, cfg ActuatorConfig) *Actuator {
	cfg.defaults()
	return &Actuator{surf: surf, rec: NewReconciler(surf), cfg: cfg}
}

// Invoke performs action. Power requires confirm while the displayed
// caption is POWER OFF; a nil confirm counts as a refusal. A button that is
// not on the page is reported as StatusNotFound, not as an error.
func (a *Actuator) Invoke(ctx context.Context, action telemetry.Action, confirm ConfirmFunc) (telemetry.Outcome, error) {
	pred, ok := action.Predicate()
	if !ok {
		return telemetry.Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	log := a.cfg.Logger

	if action == telemetry.ActionPower && a.cfg.Captions().Power == PowerOffCaption {
		if confirm == nil || !confirm(ctx, "Power off the amplifier?") {
			log.Info("panel: action cancelled", "action", action)
			return telemetry.Outcome{Action: action, Status: telemetry.StatusCancelled}, nil
		}
	}

	res, err := a.click(ctx, pred)
	if err != nil {
		return telemetry.Outcome{}, fmt.Errorf("panel: invoke %s: %w", action, err)
	}
	if !res.Found {
		log.Warn("panel: button not found", "action", action)
		return telemetry.Outcome{Action: action, Status: telemetry.StatusNotFound}, nil
	}
	log.Info("panel: clicked", "action", action, "label", res.Label)

	if action == telemetry.ActionPower {
		a.afterPower(ctx)
	}
	return telemetry.Outcome{Action: action, Status: telemetry.StatusClicked, Label: res.Label}, nil
}

// afterPower acknowledges the panel's confirmation dialog, waits for the
// device to settle and publishes the new captions. Failures are logged.
func (a *Actuator) afterPower(ctx context.Context) {
	log := a.cfg.Logger

	if !sleep(ctx, a.cfg.ConfirmDelay) {
		return
	}
	if ok, err := a.click(ctx, telemetry.OKButton); err != nil {
		log.Warn("panel: confirm dialog click failed", "error", err)
	} else if !ok.Found {
		log.Debug("panel: no confirm dialog")
	}

	if !sleep(ctx, a.cfg.SettleDelay) {
		return
	}
	qctx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout)
	defer cancel()
	st, err := a.rec.Reconcile(qctx)
	if err != nil {
		log.Warn("panel: reconcile after power failed", "error", err)
		return
	}
	if a.cfg.OnButtons != nil {
		a.cfg.OnButtons(st)
	}
}

func (a *Actuator) click(ctx context.Context, p telemetry.Predicate) (clickResult, error) {
	qctx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout)
	defer cancel()
	out, err := a.surf.RunQuery(qctx, clickScript(p))
	if err != nil {
		return clickResult{}, err
	}
	var res clickResult
	if err := telemetry.DecodeResult(out, &res); err != nil {
		return clickResult{}, fmt.Errorf("%w: click: %v", ErrDecode, err)
	}
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
