// Package surface hosts the amplifier's control panel and runs scripts
// against it. Two implementations exist: Page drives a headless Chrome tab
// through Rod, Static fetches the panel over HTTP and evaluates the same
// scripts in-process with goja over a parsed DOM.
package surface

import (
	"context"
	"errors"
)

var (
	// ErrNotReady is returned when the page is not loaded.
	ErrNotReady = errors.New("surface: not ready")
	// ErrReadOnly is returned when a script clicks on a surface that
	// cannot forward clicks to the device.
	ErrReadOnly = errors.New("surface: read-only")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("surface: closed")
)

// Surface is a live panel page. A script is a JavaScript function
// expression; RunQuery invokes it and returns its result as a string.
type Surface interface {
	Ready() bool
	RunQuery(ctx context.Context, script string) (string, error)
	Close() error
}

// Serial serializes every RunQuery on the wrapped surface so the poll loop
// and the actuator never interleave scripts on the same page.
type Serial struct {
	sem   chan struct{}
	inner Surface
}

// NewSerial wraps s. Wrapping a *Serial returns it unchanged.
func NewSerial(s Surface) *Serial {
	if ss, ok := s.(*Serial); ok {
		return ss
	}
	return &Serial{sem: make(chan struct{}, 1), inner: s}
}

func (s *Serial) Ready() bool { return s.inner.Ready() }

// RunQuery waits for exclusive access, giving up if ctx ends first.
func (s *Serial) RunQuery(ctx context.Context, script string) (string, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-s.sem }()
	return s.inner.RunQuery(ctx, script)
}

// Close waits for any in-flight query, then closes the surface.
func (s *Serial) Close() error {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	return s.inner.Close()
}

// Unwrap returns the wrapped surface.
func (s *Serial) Unwrap() Surface { return s.inner }
