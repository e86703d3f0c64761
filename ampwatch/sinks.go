package ampwatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/hamshack/ampwatch/internal/sink"
	"github.com/hazyhaar/hamshack/ampwatch/internal/surface"
	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

// Frequently used telemetry types.
type (
	Frame       = telemetry.Frame
	ButtonState = telemetry.ButtonState
	Notice      = telemetry.Notice
	Action      = telemetry.Action
	Outcome     = telemetry.Outcome
)

// Surface is a page that can evaluate extraction and click scripts.
type Surface = surface.Surface

// Sink is the output interface for frames, captions and notices.
type Sink = sink.Sink

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process sink. Nil handlers are skipped.
func NewCallbackSink(
	onFrame func(ctx context.Context, f Frame) error,
	onButtons func(ctx context.Context, b ButtonState) error,
	onNotice func(ctx context.Context, n Notice) error,
) Sink {
	return sink.NewCallback(onFrame, onButtons, onNotice)
}

// SinksFromConfig builds the sinks listed in cfg.
func SinksFromConfig(cfg *Config, w io.Writer, logger *slog.Logger) ([]Sink, error) {
	var out []Sink
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			out = append(out, NewStdoutSink(w))
		case "webhook":
			out = append(out, NewWebhookSink(sc.URL, logger))
		default:
			return nil, fmt.Errorf("ampwatch: unknown sink type %q", sc.Type)
		}
	}
	return out, nil
}
