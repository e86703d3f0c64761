// Package poller drives the acquisition cycle: extract the panel readings,
// map them to a snapshot, smooth the peak channels, read the button
// captions and publish a frame.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/hamshack/ampwatch/internal/panel"
	"github.com/hazyhaar/hamshack/ampwatch/internal/peak"
	"github.com/hazyhaar/hamshack/ampwatch/internal/surface"
	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

const (
	DefaultInterval     = 250 * time.Millisecond
	DefaultQueryTimeout = 3 * time.Second
)

// Reason classifies a skipped cycle.
type Reason string

const (
	ReasonNotReady    Reason = "not_ready"
	ReasonQueryError  Reason = "query_error"
	ReasonDecodeError Reason = "decode_error"
	ReasonEmpty       Reason = "empty"
	ReasonTimeout     Reason = "timeout"
)

// Reasons lists every skip reason.
var Reasons = []Reason{ReasonNotReady, ReasonQueryError, ReasonDecodeError, ReasonEmpty, ReasonTimeout}

// OutcomePublished labels a cycle that produced a frame.
const OutcomePublished = "published"

// Config configures a Poller.
type Config struct {
	// Surface is queried by both the extractor and the reconciler. Wrap it
	// in surface.Serial when an actuator shares it.
	Surface surface.Surface

	Interval     time.Duration
	QueryTimeout time.Duration

	// Hold is the peak hold duration. Ignored when Peaks is set.
	Hold  time.Duration
	Peaks *peak.Set

	// Publish receives every frame, on the poll goroutine.
	Publish func(ctx context.Context, f telemetry.Frame)

	// OnCycle observes every cycle with OutcomePublished or a Reason.
	OnCycle func(outcome string, elapsed time.Duration)

	Logger *slog.Logger
	Now    func() time.Time
}

func (c *Config) defaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Peaks == nil {
		names := make([]string, len(telemetry.PeakChannels))
		for i, ch := range telemetry.PeakChannels {
			names[i] = string(ch)
		}
		c.Peaks = peak.NewSet(names, peak.WithHold(c.Hold), peak.WithClock(c.Now))
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stats counts cycle outcomes.
type Stats struct {
	Cycles       uint64            `json:"cycles"`
	Published    uint64            `json:"published"`
	Skipped      map[Reason]uint64 `json:"skipped"`
	TicksSkipped uint64            `json:"ticks_skipped"`
	LastFrameAt  int64             `json:"last_frame_at,omitempty"`
}

// Poller runs one acquisition cycle per tick. Cycles never overlap.
type Poller struct {
	cfg Config
	ext *panel.Extractor
	rec *panel.Reconciler

	mu    sync.Mutex
	stats Stats
}

// New creates a Poller.
func New(cfg Config) *Poller {
	cfg.defaults()
	return &Poller{
		cfg: cfg,
		ext: panel.NewExtractor(cfg.Surface),
		rec: panel.NewReconciler(cfg.Surface),
		stats: Stats{
			Skipped: make(map[Reason]uint64, len(Reasons)),
		},
	}
}

// Run polls until ctx ends. A tick that elapses while a cycle is running
// is dropped and counted in Stats.TicksSkipped.
func (p *Poller) Run(ctx context.Context) error {
	log := p.cfg.Logger
	log.Info("poller: started", "interval", p.cfg.Interval)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("poller: stopped")
			return ctx.Err()
		case <-ticker.C:
		}

		start := time.Now()
		p.Cycle(ctx)
		if missed := time.Since(start) / p.cfg.Interval; missed > 0 {
			p.mu.Lock()
			p.stats.TicksSkipped += uint64(missed)
			p.mu.Unlock()
			log.Debug("poller: ticks skipped", "count", int64(missed))
		}
	}
}

// Cycle runs one acquisition. It returns the frame and true when one was
// published; a skipped cycle returns false and is only counted and logged.
func (p *Poller) Cycle(ctx context.Context) (telemetry.Frame, bool) {
	start := time.Now()

	if !p.cfg.Surface.Ready() {
		p.skip(ReasonNotReady, start, nil)
		return telemetry.Frame{}, false
	}

	qctx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
	defer cancel()

	raw, err := p.ext.Extract(qctx)
	if err != nil {
		p.skip(classify(ctx, err), start, err)
		return telemetry.Frame{}, false
	}
	if len(raw) == 0 {
		p.skip(ReasonEmpty, start, nil)
		return telemetry.Frame{}, false
	}

	snap := telemetry.ToSnapshot(raw)
	peaks := make(map[telemetry.Channel]*float64, len(telemetry.PeakChannels))
	for _, ch := range telemetry.PeakChannels {
		peaks[ch] = p.cfg.Peaks.Update(string(ch), snap.Reading(ch))
	}

	buttons, err := p.rec.Reconcile(qctx)
	if err != nil {
		p.cfg.Logger.Debug("poller: reconcile failed", "error", err)
		buttons = telemetry.ButtonState{}
	}

	now := p.cfg.Now()
	frame := telemetry.Frame{
		ID:        newID(),
		Timestamp: now.UnixMilli(),
		Snapshot:  snap,
		Peaks:     peaks,
		View:      telemetry.BuildView(snap, peaks),
		Buttons:   buttons,
	}

	p.mu.Lock()
	p.stats.Cycles++
	p.stats.Published++
	p.stats.LastFrameAt = frame.Timestamp
	p.mu.Unlock()
	if p.cfg.OnCycle != nil {
		p.cfg.OnCycle(OutcomePublished, time.Since(start))
	}

	if p.cfg.Publish != nil {
		p.cfg.Publish(ctx, frame)
	}
	return frame, true
}

// Stats returns a copy of the counters.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.stats
	out.Skipped = make(map[Reason]uint64, len(p.stats.Skipped))
	for k, v := range p.stats.Skipped {
		out.Skipped[k] = v
	}
	return out
}

func (p *Poller) skip(reason Reason, start time.Time, err error) {
	p.mu.Lock()
	p.stats.Cycles++
	p.stats.Skipped[reason]++
	p.mu.Unlock()

	if err != nil {
		p.cfg.Logger.Debug("poller: cycle skipped", "reason", reason, "error", err)
	} else {
		p.cfg.Logger.Debug("poller: cycle skipped", "reason", reason)
	}
	if p.cfg.OnCycle != nil {
		p.cfg.OnCycle(string(reason), time.Since(start))
	}
}

// classify maps an extraction error to a skip reason. A deadline hit by
// the per-query timeout is a timeout; cancellation of the run is not.
func classify(parent context.Context, err error) Reason {
	switch {
	case errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil:
		return ReasonTimeout
	case errors.Is(err, panel.ErrDecode):
		return ReasonDecodeError
	case errors.Is(err, surface.ErrNotReady):
		return ReasonNotReady
	default:
		return ReasonQueryError
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
