// Package panel reads and operates the amplifier's web control panel
// through a surface: the Extractor scrapes tagged readings, the Reconciler
// reads button captions, the Actuator clicks buttons.
package panel

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

var (
	// ErrDecode is returned when a script result is not the expected JSON.
	ErrDecode = errors.New("panel: decode")
	// ErrUnknownAction is returned for an action with no button predicate.
	ErrUnknownAction = errors.New("panel: unknown action")
)

// The scripts only use what the static surface's DOM also provides.

var extractScript = fmt.Sprintf(`() => {
	const out = {};
	const els = document.querySelectorAll('[%[1]s]');
	for (let i = 0; i < els.length; i++) {
		const key = els[i].getAttribute('%[1]s');
		if (!key) continue;
		const text = els[i].innerText || els[i].textContent || '';
		out[key] = text.replace(/\s+/g, ' ').trim();
	}
	return JSON.stringify(out);
}`, telemetry.Marker)

var reconcileScript = fmt.Sprintf(`() => {
	const bs = document.querySelectorAll('button');
	const find = (match) => {
		for (let i = 0; i < bs.length; i++) {
			if (match(bs[i])) return bs[i].textContent.trim();
		}
		return '';
	};
	return JSON.stringify({
		standby: find((b) => %s),
		bypass: find((b) => %s),
		power: find((b) => %s),
	});
}`, telemetry.StandbyButton.JS("b"), telemetry.BypassButton.JS("b"), telemetry.PowerButton.JS("b"))

// clickScript clicks the first button satisfying p and reports its label.
func clickScript(p telemetry.Predicate) string {
	return fmt.Sprintf(`() => {
	const bs = document.querySelectorAll('button');
	for (let i = 0; i < bs.length; i++) {
		const b = bs[i];
		if (%s) {
			const label = b.textContent.trim();
			b.click();
			return JSON.stringify({found: true, label: label});
		}
	}
	return JSON.stringify({found: false});
}`, p.JS("b"))
}

type clickResult struct {
	Found bool   `json:"found"`
	Label string `json:"label"`
}
