package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MetricPollCycle is the duration of one acquisition cycle, labelled with
// its outcome ("published" or a skip reason).
const MetricPollCycle = "poll_cycle_ms"

// Metric is a single timeseries datapoint.
type Metric struct {
	Name      string            `json:"name"`
	Timestamp time.Time         `json:"timestamp"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Unit      string            `json:"unit"`
}

// OutcomeSummary aggregates poll cycles by outcome.
type OutcomeSummary struct {
	Outcome string  `json:"outcome"`
	Count   int64   `json:"count"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
}

// Manager buffers metrics and flushes them to SQLite in batches. Recording
// never blocks on the database; a full buffer triggers a flush on the
// recording goroutine.
type Manager struct {
	db            *sql.DB
	bufferSize    int
	flushInterval time.Duration
	logger        *slog.Logger

	mu     sync.Mutex
	buffer []*Metric

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewManager starts a manager that flushes every flushInterval or when
// bufferSize metrics are queued.
func NewManager(db *sql.DB, bufferSize int, flushInterval time.Duration, logger *slog.Logger) *Manager {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		db:            db,
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		logger:        logger,
		buffer:        make([]*Metric, 0, bufferSize),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go m.flushLoop()
	return m
}

// Record queues a metric.
func (m *Manager) Record(metric *Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = append(m.buffer, metric)
	if len(m.buffer) >= m.bufferSize {
		m.flushLocked()
	}
}

// RecordCycle queues one poll-cycle datapoint. Its signature matches the
// poller's OnCycle hook.
func (m *Manager) RecordCycle(outcome string, elapsed time.Duration) {
	m.Record(&Metric{
		Name:      MetricPollCycle,
		Timestamp: time.Now(),
		Value:     float64(elapsed.Microseconds()) / 1000,
		Labels:    map[string]string{"outcome": outcome},
		Unit:      "milliseconds",
	})
}

// Flush writes the buffer now.
func (m *Manager) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushLocked()
}

// Query returns metrics by name, newest first. An empty name matches all;
// a zero since is unbounded; limit <= 0 is unlimited.
func (m *Manager) Query(ctx context.Context, name string, since time.Time, limit int) ([]*Metric, error) {
	q := "SELECT metric_name, timestamp, value, labels, unit FROM metrics_timeseries WHERE 1=1"
	args := make([]any, 0, 3)

	if name != "" {
		q += " AND metric_name = ?"
		args = append(args, name)
	}
	if !since.IsZero() {
		q += " AND timestamp >= ?"
		args = append(args, since.UnixMilli())
	}
	q += " ORDER BY timestamp DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := m.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("metrics: query: %w", err)
	}
	defer rows.Close()

	var out []*Metric
	for rows.Next() {
		var (
			name, unit string
			ts         int64
			value      float64
			labelsJSON sql.NullString
		)
		if err := rows.Scan(&name, &ts, &value, &labelsJSON, &unit); err != nil {
			return nil, fmt.Errorf("metrics: scan: %w", err)
		}
		metric := &Metric{Name: name, Timestamp: time.UnixMilli(ts), Value: value, Unit: unit}
		if labelsJSON.Valid {
			var labels map[string]string
			if json.Unmarshal([]byte(labelsJSON.String), &labels) == nil {
				metric.Labels = labels
			}
		}
		out = append(out, metric)
	}
	return out, rows.Err()
}

// Summary aggregates poll cycles since the given time by outcome.
func (m *Manager) Summary(ctx context.Context, since time.Time) ([]OutcomeSummary, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT COALESCE(json_extract(labels, '$.outcome'), ''), COUNT(*), AVG(value), MAX(value)
		FROM metrics_timeseries
		WHERE metric_name = ? AND timestamp >= ?
		GROUP BY 1
		ORDER BY 2 DESC, 1`,
		MetricPollCycle, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("metrics: summary: %w", err)
	}
	defer rows.Close()

	var out []OutcomeSummary
	for rows.Next() {
		var s OutcomeSummary
		if err := rows.Scan(&s.Outcome, &s.Count, &s.AvgMs, &s.MaxMs); err != nil {
			return nil, fmt.Errorf("metrics: summary scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Cleanup deletes metrics older than retention and returns the count removed.
func (m *Manager) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention).UnixMilli()
	res, err := m.db.ExecContext(ctx, "DELETE FROM metrics_timeseries WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("metrics: cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close flushes remaining metrics and stops the background goroutine. The
// database is left open.
func (m *Manager) Close() error {
	m.once.Do(func() { close(m.stop) })
	<-m.done
	return nil
}

func (m *Manager) flushLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			m.Flush()
			return
		case <-ticker.C:
			m.Flush()
		}
	}
}

func (m *Manager) flushLocked() {
	if len(m.buffer) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		m.logger.Error("metrics: begin tx", "error", err)
		return
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO metrics_timeseries (metric_name, timestamp, value, labels, unit) VALUES (?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		m.logger.Error("metrics: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, metric := range m.buffer {
		var labelsJSON sql.NullString
		if len(metric.Labels) > 0 {
			if b, err := json.Marshal(metric.Labels); err == nil {
				labelsJSON = sql.NullString{String: string(b), Valid: true}
			}
		}
		if _, err := stmt.ExecContext(ctx, metric.Name, metric.Timestamp.UnixMilli(), metric.Value, labelsJSON, metric.Unit); err != nil {
			m.logger.Error("metrics: insert", "metric", metric.Name, "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		m.logger.Error("metrics: commit", "error", err)
	}
	m.buffer = m.buffer[:0]
}
