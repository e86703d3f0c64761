package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

func TestStdout_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)

	s.SendFrame(context.Background(), telemetry.Frame{ID: "f1"})
	s.SendButtons(context.Background(), telemetry.ButtonState{Power: "POWER ON"})
	s.SendNotice(context.Background(), telemetry.Notice{ID: "n1", Level: telemetry.NoticeWarning, Message: "button not found"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var types []string
	for _, l := range lines {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(l), &env); err != nil {
			t.Fatalf("line %q: %v", l, err)
		}
		types = append(types, env.Type)
	}
	if strings.Join(types, ",") != "frame,buttons,notice" {
		t.Errorf("types = %v", types)
	}
}

type recordingSink struct {
	frames  int
	buttons int
	notices int
	err     error
	closed  bool
}

func (r *recordingSink) SendFrame(context.Context, telemetry.Frame) error {
	r.frames++
	return r.err
}

func (r *recordingSink) SendButtons(context.Context, telemetry.ButtonState) error {
	r.buttons++
	return r.err
}

func (r *recordingSink) SendNotice(context.Context, telemetry.Notice) error {
	r.notices++
	return r.err
}

func (r *recordingSink) Close() error {
	r.closed = true
	return r.err
}

func TestRouter_FanOutDespiteErrors(t *testing.T) {
	bad := &recordingSink{err: errors.New("down")}
	good := &recordingSink{}
	r := NewRouter(nil, bad, good)

	if err := r.SendFrame(context.Background(), telemetry.Frame{}); err == nil {
		t.Error("expected first error")
	}
	r.SendButtons(context.Background(), telemetry.ButtonState{})
	r.SendNotice(context.Background(), telemetry.Notice{})

	if good.frames != 1 || good.buttons != 1 || good.notices != 1 {
		t.Errorf("good sink = %+v", good)
	}
	if err := r.Close(); err == nil || !good.closed || !bad.closed {
		t.Error("Close must reach every sink and report the error")
	}
}

func TestRouter_Add(t *testing.T) {
	r := NewRouter(nil)
	if r.SendFrame(context.Background(), telemetry.Frame{}) != nil {
		t.Error("empty router must not fail")
	}
	s := &recordingSink{}
	r.Add(s)
	r.SendFrame(context.Background(), telemetry.Frame{})
	if r.Len() != 1 || s.frames != 1 {
		t.Errorf("len=%d frames=%d", r.Len(), s.frames)
	}
}

func TestCallback_NilHandlers(t *testing.T) {
	c := NewCallback(nil, nil, nil)
	if c.SendFrame(context.Background(), telemetry.Frame{}) != nil ||
		c.SendButtons(context.Background(), telemetry.ButtonState{}) != nil ||
		c.SendNotice(context.Background(), telemetry.Notice{}) != nil {
		t.Error("nil handlers must be no-ops")
	}

	var got string
	c = NewCallback(func(_ context.Context, f telemetry.Frame) error {
		got = f.ID
		return nil
	}, nil, nil)
	c.SendFrame(context.Background(), telemetry.Frame{ID: "x"})
	if got != "x" {
		t.Errorf("got %q", got)
	}
}

func TestWebhook_Delivers(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		body, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	if err := w.SendNotice(context.Background(), telemetry.Notice{Message: "hi"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `"type":"notice"`) || !strings.Contains(string(body), `"message":"hi"`) {
		t.Errorf("body = %s", body)
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.SendFrame(context.Background(), telemetry.Frame{}); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d", calls.Load())
	}
}

func TestWebhook_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond))
	if err := w.SendButtons(context.Background(), telemetry.ButtonState{}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestWebhook_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Hour))
	if err := w.SendFrame(ctx, telemetry.Frame{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
