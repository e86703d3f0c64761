package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

// Router fans out to all configured sinks. One sink error does not block
// the others; errors are logged and the first one is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Add appends a sink. Not safe to call concurrently with sends.
func (r *Router) Add(s Sink) { r.sinks = append(r.sinks, s) }

// Len returns the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) SendFrame(ctx context.Context, f telemetry.Frame) error {
	return r.each("frame", func(s Sink) error { return s.SendFrame(ctx, f) })
}

func (r *Router) SendButtons(ctx context.Context, b telemetry.ButtonState) error {
	return r.each("buttons", func(s Sink) error { return s.SendButtons(ctx, b) })
}

func (r *Router) SendNotice(ctx context.Context, n telemetry.Notice) error {
	return r.each("notice", func(s Sink) error { return s.SendNotice(ctx, n) })
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) each(kind string, send func(Sink) error) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := send(s); err != nil {
			r.logger.Warn("sink: send failed", "kind", kind, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
