package ampwatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_FrameBeforeFirstCycle(t *testing.T) {
	m := newTestMonitor(t, newFakeAmp(t, "1.8"))
	if rec := do(t, m.Handler(), "GET", "/api/frame", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestHTTP_FrameAndButtons(t *testing.T) {
	m := newTestMonitor(t, newFakeAmp(t, "2.5", "OPERATE", "POWER OFF"))
	if _, err := m.Once(context.Background(), 2*time.Second); err != nil {
		t.Fatal(err)
	}
	h := m.Handler()

	rec := do(t, h, "GET", "/api/frame", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var f Frame
	if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
		t.Fatal(err)
	}
	if f.View.SWRColor != telemetry.ColorWarning || f.View.ForwardPower != "1200 W" {
		t.Errorf("view = %+v", f.View)
	}

	rec = do(t, h, "GET", "/api/buttons", "")
	var b ButtonState
	json.Unmarshal(rec.Body.Bytes(), &b)
	if b.Power != "POWER OFF" || b.Standby != "OPERATE" {
		t.Errorf("buttons = %+v", b)
	}

	rec = do(t, h, "GET", "/api/stats", "")
	if !strings.Contains(rec.Body.String(), `"published":1`) {
		t.Errorf("stats = %s", rec.Body.String())
	}
}

func TestHTTP_Health(t *testing.T) {
	m := newTestMonitor(t, newFakeAmp(t, "1.8"))
	if rec := do(t, m.Handler(), "GET", "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
	idle := New(DefaultConfig(), nil)
	if rec := do(t, idle.Handler(), "GET", "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("idle code = %d", rec.Code)
	}
}

func TestHTTP_ActionStatuses(t *testing.T) {
	tests := []struct {
		name    string
		buttons []string
		path    string
		body    string
		want    int
	}{
		{"clicked", []string{"TUNE"}, "/api/actions/tune", "", http.StatusOK},
		{"case insensitive", []string{"TUNE"}, "/api/actions/TUNE", "", http.StatusOK},
		{"not found", []string{"OPERATE"}, "/api/actions/tune", "", http.StatusNotFound},
		{"unknown", nil, "/api/actions/reboot", "", http.StatusBadRequest},
		{"bad body", []string{"TUNE"}, "/api/actions/tune", "{", http.StatusBadRequest},
		{"power off unconfirmed", []string{"POWER OFF"}, "/api/actions/power", `{"confirm":false}`, http.StatusConflict},
		{"power off confirmed", []string{"POWER OFF"}, "/api/actions/power", `{"confirm":true}`, http.StatusOK},
		{"power on", []string{"POWER ON"}, "/api/actions/power", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMonitor(t, newFakeAmp(t, "1.8", tt.buttons...))
			if _, err := m.Once(context.Background(), 2*time.Second); err != nil {
				t.Fatal(err)
			}
			rec := do(t, m.Handler(), "POST", tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("code = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestHTTP_ActionReadOnly(t *testing.T) {
	amp := newFakeAmp(t, "1.8", "TUNE")
	m := New(testConfig(amp.srv.URL), nil)
	defer m.Stop()
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if rec := do(t, m.Handler(), "POST", "/api/actions/tune", ""); rec.Code != http.StatusNotImplemented {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestHTTP_Metrics(t *testing.T) {
	amp := newFakeAmp(t, "1.8")
	m := newTestMonitor(t, amp)
	if rec := do(t, m.Handler(), "GET", "/api/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("disabled: code = %d", rec.Code)
	}

	cfg := testConfig(amp.srv.URL)
	cfg.Metrics.DB = filepath.Join(t.TempDir(), "metrics.db")
	m = New(cfg, nil)
	defer m.Stop()
	m.UseSurface(amp.surface())
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Once(context.Background(), 2*time.Second); err != nil {
		t.Fatal(err)
	}

	h := m.Handler()
	if rec := do(t, h, "GET", "/api/metrics?window=nope", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad window: code = %d", rec.Code)
	}
	rec := do(t, h, "GET", "/api/metrics?window=5m", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"outcome":"published"`) {
		t.Errorf("code = %d body = %s", rec.Code, rec.Body.String())
	}
}
