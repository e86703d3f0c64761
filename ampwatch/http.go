package ampwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

// Handler returns a chi router with the HTTP API mounted.
func (m *Monitor) Handler() http.Handler {
	r := chi.NewRouter()
	m.RegisterHTTP(r)
	return r
}

// RegisterHTTP registers the HTTP API on a chi router.
func (m *Monitor) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", m.handleHealth)
	r.Get("/api/frame", m.handleFrame)
	r.Get("/api/buttons", m.handleButtons)
	r.Get("/api/stats", m.handleStats)
	r.Get("/api/metrics", m.handleMetrics)
	r.Post("/api/actions/{action}", m.handleAction)
}

type actionReq struct {
	Confirm bool `json:"confirm"`
}

func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if !m.Ready() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"ready": m.Ready(),
		"url":   m.AmplifierURL(),
	})
}

func (m *Monitor) handleFrame(w http.ResponseWriter, r *http.Request) {
	f, ok := m.Latest()
	if !ok {
		http.Error(w, "No frame yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (m *Monitor) handleButtons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.Captions())
}

func (m *Monitor) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.Stats())
}

// handleMetrics aggregates stored cycle outcomes over ?window= (default 1h).
func (m *Monitor) handleMetrics(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r.URL.Query().Get("window"))
	if err != nil {
		http.Error(w, "Invalid window", http.StatusBadRequest)
		return
	}

	sum, err := m.MetricsSummary(r.Context(), time.Now().Add(-window))
	if errors.Is(err, ErrMetricsDisabled) {
		http.Error(w, "Metrics disabled", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window":   window.String(),
		"outcomes": sum,
	})
}

// handleAction clicks a panel button. A power-off needs {"confirm":true};
// without it the request is answered 409 and nothing is clicked.
func (m *Monitor) handleAction(w http.ResponseWriter, r *http.Request) {
	action, ok := telemetry.ParseAction(chi.URLParam(r, "action"))
	if !ok {
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}

	var req actionReq
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	confirm := func(context.Context, string) bool { return req.Confirm }
	out, err := m.Invoke(r.Context(), action, confirm)
	switch {
	case errors.Is(err, ErrNotStarted), errors.Is(err, ErrNotReady):
		http.Error(w, "Panel not ready", http.StatusServiceUnavailable)
		return
	case errors.Is(err, ErrReadOnly):
		http.Error(w, "Panel surface is read-only", http.StatusNotImplemented)
		return
	case errors.Is(err, ErrUnknownAction):
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	case err != nil:
		m.logger.Warn("ampwatch: action failed", "action", action, "error", err)
		http.Error(w, "Panel action failed", http.StatusBadGateway)
		return
	}

	status := http.StatusOK
	switch out.Status {
	case telemetry.StatusNotFound:
		status = http.StatusNotFound
	case telemetry.StatusCancelled:
		status = http.StatusConflict
	}
	writeJSON(w, status, out)
}

func parseWindow(s string) (time.Duration, error) {
	if s == "" {
		return time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("ampwatch: window: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("ampwatch: window must be positive")
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
