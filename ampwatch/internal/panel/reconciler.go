package panel

import (
	"context"
	"fmt"

	"github.com/hazyhaar/hamshack/ampwatch/internal/surface"
	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

// Reconciler reads the current captions of the standby, bypass and power
// buttons from the live page.
type Reconciler struct {
	surf surface.Surface
}

// NewReconciler creates a Reconciler over surf.
func NewReconciler(surf surface.Surface) *Reconciler {
	return &Reconciler{surf: surf}
}

// Reconcile queries the page. A missing button yields an empty caption;
// so does a caption its predicate rejects.
func (r *Reconciler) Reconcile(ctx context.Context) (telemetry.ButtonState, error) {
	res, err := r.surf.RunQuery(ctx, reconcileScript)
	if err != nil {
		return telemetry.ButtonState{}, fmt.Errorf("panel: reconcile: %w", err)
	}
	var st telemetry.ButtonState
	if err := telemetry.DecodeResult(res, &st); err != nil {
		return telemetry.ButtonState{}, fmt.Errorf("%w: reconcile: %v", ErrDecode, err)
	}
	return telemetry.ButtonState{
		Standby: validCaption(telemetry.StandbyButton, st.Standby),
		Bypass:  validCaption(telemetry.BypassButton, st.Bypass),
		Power:   validCaption(telemetry.PowerButton, st.Power),
	}, nil
}

func validCaption(p telemetry.Predicate, caption string) string {
	if caption == "" || !p.Match(caption) {
		return ""
	}
	return caption
}
