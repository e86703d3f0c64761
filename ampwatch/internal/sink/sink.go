// Package sink defines output backends for ampwatch frames and notices.
package sink

import (
	"context"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

// Sink is the output interface. Implementations deliver frames to
// different backends (stdout, webhook, in-process callback).
type Sink interface {
	SendFrame(ctx context.Context, f telemetry.Frame) error
	SendButtons(ctx context.Context, b telemetry.ButtonState) error
	SendNotice(ctx context.Context, n telemetry.Notice) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
