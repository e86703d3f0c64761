package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

// Stdout writes JSON lines to an io.Writer (default os.Stdout).
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) SendFrame(_ context.Context, f telemetry.Frame) error {
	return s.write("frame", f)
}

func (s *Stdout) SendButtons(_ context.Context, b telemetry.ButtonState) error {
	return s.write("buttons", b)
}

func (s *Stdout) SendNotice(_ context.Context, n telemetry.Notice) error {
	return s.write("notice", n)
}

func (s *Stdout) Close() error { return nil }

func (s *Stdout) write(typ string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: typ, Data: data})
}
