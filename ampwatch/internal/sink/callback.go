package sink

import (
	"context"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

// FrameFunc is called for each frame.
type FrameFunc func(ctx context.Context, f telemetry.Frame) error

// ButtonsFunc is called when captions are re-read outside a poll cycle.
type ButtonsFunc func(ctx context.Context, b telemetry.ButtonState) error

// NoticeFunc is called for each notice.
type NoticeFunc func(ctx context.Context, n telemetry.Notice) error

// Callback delivers to Go functions in-process, without serialisation.
// The terminal dashboard receives its updates this way.
type Callback struct {
	onFrame   FrameFunc
	onButtons ButtonsFunc
	onNotice  NoticeFunc
}

// NewCallback creates a Callback sink. Any handler may be nil.
func NewCallback(onFrame FrameFunc, onButtons ButtonsFunc, onNotice NoticeFunc) *Callback {
	return &Callback{onFrame: onFrame, onButtons: onButtons, onNotice: onNotice}
}

func (c *Callback) SendFrame(ctx context.Context, f telemetry.Frame) error {
	if c.onFrame != nil {
		return c.onFrame(ctx, f)
	}
	return nil
}

func (c *Callback) SendButtons(ctx context.Context, b telemetry.ButtonState) error {
	if c.onButtons != nil {
		return c.onButtons(ctx, b)
	}
	return nil
}

func (c *Callback) SendNotice(ctx context.Context, n telemetry.Notice) error {
	if c.onNotice != nil {
		return c.onNotice(ctx, n)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
