// Package peak implements hold-and-decay smoothing for noisy panel readings.
// A Tracker shows the local maximum of a reading for a minimum dwell time
// before letting it fall back to the latest value.
package peak

import (
	"sync"
	"time"
)

// DefaultHold is how long a peak is displayed before it may decay.
const DefaultHold = 3 * time.Second

// Option configures a Tracker or a Set.
type Option func(*options)

type options struct {
	hold time.Duration
	now  func() time.Time
}

// WithHold sets the hold duration. Non-positive values keep DefaultHold.
func WithHold(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.hold = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{hold: DefaultHold, now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Tracker holds the peak of one channel.
type Tracker struct {
	hold    time.Duration
	now     func() time.Time
	current *float64
	last    time.Time
}

// New creates an empty Tracker.
func New(opts ...Option) *Tracker {
	o := buildOptions(opts)
	return &Tracker{hold: o.hold, now: o.now}
}

// Update feeds a new reading and returns the value to display.
//
// A nil reading changes nothing. A strictly greater reading (or the first
// one) becomes the new peak immediately. Any other reading replaces the
// peak only once the peak has been held for longer than the hold duration.
func (t *Tracker) Update(v *float64) *float64 {
	if v == nil {
		return t.Current()
	}
	now := t.now()
	switch {
	case t.current == nil || *v > *t.current:
		t.set(*v, now)
	case now.Sub(t.last) > t.hold:
		t.set(*v, now)
	}
	return t.Current()
}

// Current returns a copy of the held value, or nil before the first reading.
func (t *Tracker) Current() *float64 {
	if t.current == nil {
		return nil
	}
	v := *t.current
	return &v
}

// LastUpdate returns when the held value last changed.
func (t *Tracker) LastUpdate() time.Time { return t.last }

func (t *Tracker) set(v float64, at time.Time) {
	t.current = &v
	t.last = at
}

// Set owns one Tracker per named channel. The channel list is fixed at
// construction.
type Set struct {
	mu       sync.Mutex
	names    []string
	trackers map[string]*Tracker
}

// NewSet creates a Set with one tracker per name, all sharing opts.
func NewSet(names []string, opts ...Option) *Set {
	s := &Set{
		names:    append([]string(nil), names...),
		trackers: make(map[string]*Tracker, len(names)),
	}
	for _, n := range names {
		s.trackers[n] = New(opts...)
	}
	return s
}

// Names returns the channel names in construction order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Update feeds a reading to the named tracker. Unknown names pass the
// reading through unsmoothed.
func (s *Set) Update(name string, v *float64) *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[name]
	if !ok {
		return v
	}
	return t.Update(v)
}

// Current returns the held value of every channel.
func (s *Set) Current() map[string]*float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*float64, len(s.trackers))
	for n, t := range s.trackers {
		out[n] = t.Current()
	}
	return out
}
