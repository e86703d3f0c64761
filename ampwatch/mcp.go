package ampwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/hamshack/ampwatch/telemetry"
)

// RegisterMCP registers the ampwatch tools on an MCP server.
func (m *Monitor) RegisterMCP(srv *mcp.Server) {
	m.registerStateTool(srv)
	m.registerActionTool(srv)
	m.registerStatsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// addTool wraps a typed endpoint: argument decoding, error results and the
// JSON text payload.
func addTool[Req any](srv *mcp.Server, tool *mcp.Tool, endpoint func(context.Context, *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}

		resp, err := endpoint(ctx, &r)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// --- state ---

type stateReq struct{}

type stateResp struct {
	Ready   bool        `json:"ready"`
	URL     string      `json:"url"`
	Frame   *Frame      `json:"frame,omitempty"`
	Buttons ButtonState `json:"buttons"`
}

func (m *Monitor) registerStateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ampwatch_state",
		Description: "Latest amplifier telemetry frame (readings, peak-held power, display strings, SWR colour) and the button captions.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	addTool(srv, tool, func(_ context.Context, _ *stateReq) (any, error) {
		resp := stateResp{Ready: m.Ready(), URL: m.AmplifierURL(), Buttons: m.Captions()}
		if f, ok := m.Latest(); ok {
			resp.Frame = &f
		}
		return resp, nil
	})
}

// --- action ---

type actionToolReq struct {
	Action  string `json:"action"`
	Confirm bool   `json:"confirm"`
}

func (m *Monitor) registerActionTool(srv *mcp.Server) {
	names := make([]string, len(telemetry.Actions))
	for i, a := range telemetry.Actions {
		names[i] = string(a)
	}
	desc := "Button to click: " + strings.Join(names, ", ")
	tool := &mcp.Tool{
		Name:        "ampwatch_action",
		Description: "Click an amplifier panel button. Powering off requires confirm=true.",
		InputSchema: inputSchema(map[string]any{
			"action":  map[string]any{"type": "string", "description": desc},
			"confirm": map[string]any{"type": "boolean", "description": "Confirm a power-off"},
		}, []string{"action"}),
	}
	addTool(srv, tool, func(ctx context.Context, r *actionToolReq) (any, error) {
		action, ok := telemetry.ParseAction(r.Action)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, r.Action)
		}
		confirm := func(context.Context, string) bool { return r.Confirm }
		out, err := m.Invoke(ctx, action, confirm)
		if err != nil {
			return nil, err
		}
		switch out.Status {
		case telemetry.StatusNotFound:
			return nil, fmt.Errorf("%s button not found on the panel", action)
		case telemetry.StatusCancelled:
			return nil, fmt.Errorf("%s not confirmed: pass confirm=true to power off", action)
		}
		return out, nil
	})
}

// --- stats ---

type statsReq struct {
	Window string `json:"window"`
}

type statsResp struct {
	Stats    Stats            `json:"stats"`
	Outcomes []OutcomeSummary `json:"outcomes,omitempty"`
}

func (m *Monitor) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ampwatch_stats",
		Description: "Poll-cycle counters, and stored outcome aggregates when metrics are enabled.",
		InputSchema: inputSchema(map[string]any{
			"window": map[string]any{"type": "string", "description": "Aggregation window, e.g. 15m (default 1h)"},
		}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, r *statsReq) (any, error) {
		window, err := parseWindow(r.Window)
		if err != nil {
			return nil, err
		}
		resp := statsResp{Stats: m.Stats()}
		sum, err := m.MetricsSummary(ctx, time.Now().Add(-window))
		switch {
		case errors.Is(err, ErrMetricsDisabled):
		case err != nil:
			return nil, err
		default:
			resp.Outcomes = sum
		}
		return resp, nil
	})
}
