package surface

import (
	"context"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

var markerSel = cascadia.MustCompile("[" + telemetry.Marker + "]")

// HasLiveValues reports whether the served HTML already carries readings:
// at least one element tagged with the marker attribute has non-blank text.
// Panels that fill their fields from script after load do not, and need a
// real browser.
func HasLiveValues(body []byte) bool {
	doc, err := parseDocument(body)
	if err != nil {
		return false
	}
	for _, n := range cascadia.QueryAll(doc, markerSel) {
		if strings.TrimSpace(textContent(n, true)) != "" {
			return true
		}
	}
	return false
}

// Detect probes pageURL and reports whether the static surface can read it.
func Detect(ctx context.Context, f *Fetcher, pageURL string) (static bool, err error) {
	body, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return false, err
	}
	return HasLiveValues(body), nil
}
