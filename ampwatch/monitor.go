// Package ampwatch monitors an RF amplifier through its embedded web
// control panel. A Monitor samples the panel on a fixed interval, turns the
// displayed readings into typed frames with peak-hold smoothing, tracks the
// mode captions of the panel buttons, and clicks buttons on request.
//
// The panel is hosted either in headless Chrome or, when the served HTML
// already carries the readings, fetched over HTTP and evaluated in-process.
// Frames and notices are emitted to sinks (stdout, webhook, callback); the
// HTTP API, MCP tools and terminal dashboard are built on top.
package ampwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/hamshack/ampwatch/internal/config"
	"github.com/hazyhaar/hamshack/ampwatch/internal/metrics"
	"github.com/hazyhaar/hamshack/ampwatch/internal/panel"
	"github.com/hazyhaar/hamshack/ampwatch/internal/poller"
	"github.com/hazyhaar/hamshack/ampwatch/internal/sink"
	"github.com/hazyhaar/hamshack/ampwatch/internal/surface"
	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

var (
	// ErrNotStarted is returned by operations that need a surface before
	// Start or UseSurface.
	ErrNotStarted = errors.New("ampwatch: not started")
	// ErrMetricsDisabled is returned when no metrics database is configured.
	ErrMetricsDisabled = errors.New("ampwatch: metrics disabled")
	// ErrNoFrame is returned by Once when no frame could be acquired.
	ErrNoFrame = errors.New("ampwatch: no frame acquired")
)

// Re-exported sentinels for callers outside the module.
var (
	ErrNotReady      = surface.ErrNotReady
	ErrReadOnly      = surface.ErrReadOnly
	ErrUnknownAction = panel.ErrUnknownAction
)

// ConfirmFunc asks the operator to confirm a risky action.
type ConfirmFunc = panel.ConfirmFunc

// Stats counts poll-cycle outcomes.
type Stats = poller.Stats

// OutcomeSummary aggregates stored poll-cycle metrics by outcome.
type OutcomeSummary = metrics.OutcomeSummary

// Monitor is the top-level orchestrator. It owns the surface, the poller,
// the actuator and the sinks.
type Monitor struct {
	cfg    *config.Config
	logger *slog.Logger
	router *sink.Router

	mu       sync.RWMutex
	surf     *surface.Serial
	mgr      *surface.Manager
	poll     *poller.Poller
	act      *panel.Actuator
	metrics  *metrics.Manager
	closeDB  func() error
	latest   telemetry.Frame
	hasFrame bool
	captions telemetry.ButtonState
}

// New creates a Monitor. cfg.Amplifier.URL must be resolved by the caller.
func New(cfg *Config, logger *slog.Logger, sinks ...Sink) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Monitor{
		cfg:    cfg,
		logger: logger,
		router: sink.NewRouter(logger, sinks...),
	}
}

// AddSink registers another sink. Call before Run.
func (m *Monitor) AddSink(s Sink) { m.router.Add(s) }

// AmplifierURL returns the panel address being monitored.
func (m *Monitor) AmplifierURL() string { return m.cfg.Amplifier.URL }

// Start opens the metrics database if configured and brings up the panel
// surface, detecting the surface mode when set to auto. A surface installed
// with UseSurface is kept.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.openMetrics(); err != nil {
		return err
	}

	m.mu.RLock()
	installed := m.surf != nil
	m.mu.RUnlock()
	if installed {
		return nil
	}

	if m.cfg.Amplifier.URL == "" {
		return fmt.Errorf("ampwatch: start: no amplifier url")
	}

	mode := m.resolveMode(ctx)
	switch mode {
	case config.ModeStatic:
		m.UseSurface(surface.NewStatic(m.cfg.Amplifier.URL, surface.WithLogger(m.logger)))
		m.logger.Warn("ampwatch: static surface is read-only, panel controls are disabled", "url", m.cfg.Amplifier.URL)
	default:
		mgr := surface.NewManager(surface.BrowserConfig{
			RemoteURL:        m.cfg.Browser.Remote,
			Headless:         m.cfg.Browser.IsHeadless(),
			Stealth:          m.cfg.Browser.Stealth,
			MemoryLimit:      m.cfg.Browser.MemoryLimit,
			RecycleInterval:  m.cfg.Browser.RecycleInterval,
			ResourceBlocking: m.cfg.Browser.ResourceBlocking,
			Logger:           m.logger,
		})
		if _, err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("ampwatch: start browser: %w", err)
		}
		page, err := surface.OpenPage(ctx, mgr, m.cfg.Amplifier.URL)
		if err != nil {
			mgr.Close()
			return fmt.Errorf("ampwatch: open panel: %w", err)
		}
		m.mu.Lock()
		m.mgr = mgr
		m.mu.Unlock()
		m.UseSurface(page)
	}

	m.logger.Info("ampwatch: started", "url", m.cfg.Amplifier.URL, "surface", mode)
	return nil
}

// UseSurface installs s as the panel surface and wires the poller and the
// actuator to it.
func (m *Monitor) UseSurface(s Surface) {
	serial := surface.NewSerial(s)

	p := poller.New(poller.Config{
		Surface:      serial,
		Interval:     m.cfg.Poll.Interval,
		QueryTimeout: m.cfg.Surface.QueryTimeout,
		Hold:         m.cfg.Poll.Hold,
		Publish:      m.publish,
		OnCycle:      m.recordCycle,
		Logger:       m.logger,
	})
	act := panel.NewActuator(serial, panel.ActuatorConfig{
		ConfirmDelay: m.cfg.Poll.ConfirmDelay,
		SettleDelay:  m.cfg.Poll.SettleDelay,
		QueryTimeout: m.cfg.Surface.QueryTimeout,
		Captions:     m.Captions,
		OnButtons:    m.publishButtons,
		Logger:       m.logger,
	})

	m.mu.Lock()
	m.surf, m.poll, m.act = serial, p, act
	m.mu.Unlock()
}

// Run polls the panel until ctx ends.
func (m *Monitor) Run(ctx context.Context) error {
	p := m.poller()
	if p == nil {
		return ErrNotStarted
	}
	err := p.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Once waits up to timeout for the surface to become ready, then runs
// cycles until one publishes a frame. The frame carries the merged captions.
func (m *Monitor) Once(ctx context.Context, timeout time.Duration) (Frame, error) {
	p := m.poller()
	if p == nil {
		return Frame{}, ErrNotStarted
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interval := m.cfg.Poll.Interval
	if interval <= 0 {
		interval = poller.DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, ok := p.Cycle(ctx); ok {
			f, _ := m.Latest()
			return f, nil
		}
		select {
		case <-ctx.Done():
			return Frame{}, fmt.Errorf("%w: %v", ErrNoFrame, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Invoke performs an operator action on the panel. A button that is not on
// the page yields a warning notice to the sinks and StatusNotFound.
func (m *Monitor) Invoke(ctx context.Context, action Action, confirm ConfirmFunc) (Outcome, error) {
	m.mu.RLock()
	act := m.act
	m.mu.RUnlock()
	if act == nil {
		return Outcome{}, ErrNotStarted
	}

	out, err := act.Invoke(ctx, action, confirm)
	if err != nil {
		m.notify(ctx, telemetry.NoticeError, fmt.Sprintf("%s failed: %v", action, err), nil)
		return out, err
	}
	switch out.Status {
	case telemetry.StatusNotFound:
		m.notify(ctx, telemetry.NoticeWarning, fmt.Sprintf("%s button not found on the panel", action), &out)
	case telemetry.StatusCancelled:
		m.notify(ctx, telemetry.NoticeInfo, fmt.Sprintf("%s cancelled", action), &out)
	}
	return out, nil
}

// Latest returns the most recent frame, with the displayed captions.
func (m *Monitor) Latest() (Frame, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.hasFrame
}

// Captions returns the button captions currently displayed. Captions are
// only replaced by non-empty readings.
func (m *Monitor) Captions() ButtonState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.captions
}

// Ready reports whether the panel surface is ready.
func (m *Monitor) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.surf != nil && m.surf.Ready()
}

// Stats returns the poll-cycle counters.
func (m *Monitor) Stats() Stats {
	if p := m.poller(); p != nil {
		return p.Stats()
	}
	return Stats{Skipped: map[poller.Reason]uint64{}}
}

// MetricsSummary aggregates stored cycle metrics since the given time.
func (m *Monitor) MetricsSummary(ctx context.Context, since time.Time) ([]OutcomeSummary, error) {
	m.mu.RLock()
	mm := m.metrics
	m.mu.RUnlock()
	if mm == nil {
		return nil, ErrMetricsDisabled
	}
	mm.Flush()
	return mm.Summary(ctx, since)
}

// Stop closes the surface, the browser, the sinks and the metrics store.
func (m *Monitor) Stop() {
	m.mu.Lock()
	surf, mgr, mm, closeDB := m.surf, m.mgr, m.metrics, m.closeDB
	m.surf, m.mgr, m.metrics, m.closeDB = nil, nil, nil, nil
	m.poll, m.act = nil, nil
	m.mu.Unlock()

	if surf != nil {
		surf.Close()
	}
	if mgr != nil {
		mgr.Close()
	}
	m.router.Close()
	if mm != nil {
		mm.Close()
	}
	if closeDB != nil {
		closeDB()
	}
	m.logger.Info("ampwatch: stopped")
}

func (m *Monitor) poller() *poller.Poller {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.poll
}

// publish runs on the poll goroutine.
func (m *Monitor) publish(ctx context.Context, f telemetry.Frame) {
	m.mu.Lock()
	m.captions = m.captions.Merge(f.Buttons)
	f.Buttons = m.captions
	m.latest, m.hasFrame = f, true
	m.mu.Unlock()

	m.router.SendFrame(ctx, f)
}

func (m *Monitor) publishButtons(b telemetry.ButtonState) {
	m.mu.Lock()
	m.captions = m.captions.Merge(b)
	merged := m.captions
	m.mu.Unlock()

	m.router.SendButtons(context.Background(), merged)
}

func (m *Monitor) recordCycle(outcome string, elapsed time.Duration) {
	m.mu.RLock()
	mm := m.metrics
	m.mu.RUnlock()
	if mm != nil {
		mm.RecordCycle(outcome, elapsed)
	}
}

func (m *Monitor) notify(ctx context.Context, level telemetry.NoticeLevel, msg string, out *Outcome) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	m.router.SendNotice(ctx, telemetry.Notice{
		ID:        id.String(),
		Timestamp: time.Now().UnixMilli(),
		Level:     level,
		Message:   msg,
		Outcome:   out,
	})
}

func (m *Monitor) resolveMode(ctx context.Context) string {
	mode := m.cfg.Surface.Mode
	if mode != config.ModeAuto && mode != "" {
		return mode
	}
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	static, err := surface.Detect(probeCtx, surface.NewFetcher(), m.cfg.Amplifier.URL)
	if err != nil {
		m.logger.Warn("ampwatch: auto-detect probe failed, using browser", "url", m.cfg.Amplifier.URL, "error", err)
		return config.ModeBrowser
	}
	if static {
		return config.ModeStatic
	}
	m.logger.Info("ampwatch: panel fills values from script, using browser", "url", m.cfg.Amplifier.URL)
	return config.ModeBrowser
}

func (m *Monitor) openMetrics() error {
	m.mu.RLock()
	opened := m.metrics != nil
	m.mu.RUnlock()
	if opened || m.cfg.Metrics.DB == "" {
		return nil
	}

	db, err := metrics.Open(m.cfg.Metrics.DB)
	if err != nil {
		return fmt.Errorf("ampwatch: %w", err)
	}
	mm := metrics.NewManager(db, m.cfg.Metrics.Buffer, m.cfg.Metrics.FlushInterval, m.logger)

	m.mu.Lock()
	m.metrics, m.closeDB = mm, db.Close
	m.mu.Unlock()
	m.logger.Info("ampwatch: metrics enabled", "db", m.cfg.Metrics.DB)
	return nil
}
