package panel

import (
	"context"
	"fmt"

	"github.com/hazyhaar/hamshack/ampwatch/internal/surface"
	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

// Extractor scrapes every element tagged with the marker attribute.
type Extractor struct {
	surf surface.Surface
}

// NewExtractor creates an Extractor over surf.
func NewExtractor(surf surface.Surface) *Extractor {
	return &Extractor{surf: surf}
}

// Extract returns key to displayed text, whitespace-collapsed. A surface
// that is not ready yields an empty sample.
func (e *Extractor) Extract(ctx context.Context) (telemetry.RawSample, error) {
	if !e.surf.Ready() {
		return telemetry.RawSample{}, nil
	}
	res, err := e.surf.RunQuery(ctx, extractScript)
	if err != nil {
		return nil, fmt.Errorf("panel: extract: %w", err)
	}
	raw := telemetry.RawSample{}
	if err := telemetry.DecodeResult(res, &raw); err != nil {
		return nil, fmt.Errorf("%w: extract: %v", ErrDecode, err)
	}
	return raw, nil
}
