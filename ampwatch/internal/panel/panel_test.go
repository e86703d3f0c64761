package panel

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/hamshack/ampwatch/internal/surface"
)

// fakePanel serves a minimal amplifier page and reacts to clicks the way
// the device's UI does.
type fakePanel struct {
	mu      sync.Mutex
	values  map[string]string
	buttons []string
	clicks  []string
}

func newFakePanel(buttons ...string) *fakePanel {
	return &fakePanel{
		values: map[string]string{
			"dashboard/values/forward_power":     "  1200\n\t W ",
			"dashboard/values/swr":               "1.8",
			"dashboard/indicators/cat_is_active": "ON",
			"dashboard/values/temperature_rel":   "",
		},
		buttons: buttons,
	}
}

func (p *fakePanel) html() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var b strings.Builder
	b.WriteString("<html><body>")
	for k, v := range p.values {
		fmt.Fprintf(&b, `<div><span>label</span><span w-val="%s">%s</span></div>`, k, v)
	}
	for _, btn := range p.buttons {
		fmt.Fprintf(&b, "<button>\n  %s\n</button>", btn)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func (p *fakePanel) click(_ context.Context, el surface.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	label := strings.TrimSpace(el.Text)
	p.clicks = append(p.clicks, label)
	switch label {
	case "POWER OFF":
		p.buttons = append(p.buttons, "OK")
	case "OK":
		var kept []string
		for _, b := range p.buttons {
			switch b {
			case "OK":
			case "POWER OFF":
				kept = append(kept, "POWER ON")
			default:
				kept = append(kept, b)
			}
		}
		p.buttons = kept
	case "OPERATE":
		p.replace("OPERATE", "STANDBY")
	case "STANDBY":
		p.replace("STANDBY", "OPERATE")
	}
	return nil
}

func (p *fakePanel) replace(from, to string) {
	for i, b := range p.buttons {
		if b == from {
			p.buttons[i] = to
		}
	}
}

func (p *fakePanel) clicked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

func (p *fakePanel) serve(t *testing.T) surface.Surface {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, p.html())
	}))
	t.Cleanup(srv.Close)
	return surface.NewStatic(srv.URL, surface.WithClickHandler(p.click))
}

// scriptedSurface answers every query with a fixed result.
type scriptedSurface struct {
	ready   bool
	result  string
	err     error
	queries int
}

func (s *scriptedSurface) Ready() bool { return s.ready }

func (s *scriptedSurface) RunQuery(ctx context.Context, script string) (string, error) {
	s.queries++
	return s.result, s.err
}

func (s *scriptedSurface) Close() error { return nil }
