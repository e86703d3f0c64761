// Command ampwatch monitors an RF amplifier through its web control panel.
//
// Usage:
//
//	ampwatch -amp-url http://192.168.1.68/     # stream frames to stdout
//	ampwatch -config ampwatch.yaml -listen :8087
//	ampwatch -tui                              # terminal dashboard
//	ampwatch -mcp                              # MCP tools over stdio
//	ampwatch -once                             # print one frame and exit
//
// Every flag can also be set from the environment (AMPWATCH_AMP_URL, ...).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/vimeo/dials"
	"github.com/vimeo/dials/sources/env"
	"github.com/vimeo/dials/sources/flag"

	"github.com/hazyhaar/hamshack/ampwatch"
	"github.com/hazyhaar/hamshack/ampwatch/dashboard"
)

const version = "0.1.0"

// onceTimeout bounds -once, panel load included.
const onceTimeout = 30 * time.Second

// Flags is the command-line and environment configuration.
type Flags struct {
	Config   string `dialsenv:"AMPWATCH_CONFIG" dialsdesc:"path to ampwatch.yaml"`
	AmpURL   string `dialsenv:"AMPWATCH_AMP_URL" dialsdesc:"amplifier panel URL (overrides the config file and settings)"`
	LogLevel string `dialsenv:"AMPWATCH_LOG_LEVEL" dialsdesc:"log level: debug, info, warn, error"`
	Listen   string `dialsenv:"AMPWATCH_LISTEN" dialsdesc:"HTTP API listen address, e.g. :8087"`
	MCP      bool   `dialsenv:"AMPWATCH_MCP" dialsdesc:"serve MCP tools over stdio"`
	TUI      bool   `dialsenv:"AMPWATCH_TUI" dialsdesc:"run the terminal dashboard"`
	Once     bool   `dialsenv:"AMPWATCH_ONCE" dialsdesc:"print one frame as JSON and exit"`
}

func defaultFlags() *Flags {
	return &Flags{LogLevel: "info"}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flags := defaultFlags()
	flagSrc, err := flag.NewCmdLineSet(flag.DefaultFlagNameConfig(), flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ampwatch:", err)
		os.Exit(2)
	}
	d, err := dials.Config(ctx, flags, &env.Source{}, flagSrc)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ampwatch:", err)
		os.Exit(2)
	}
	flags = d.View()

	logger, closeLog := newLogger(flags)
	defer closeLog()

	if err := run(ctx, logger, flags); err != nil {
		logger.Error("ampwatch: fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

// newLogger writes JSON to stderr, or to the XDG state log file when the
// dashboard owns the terminal.
func newLogger(f *Flags) (*slog.Logger, func()) {
	var level slog.Level
	switch f.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if f.TUI {
		path, err := xdg.StateFile("ampwatch/ampwatch.log")
		if err == nil {
			var file *os.File
			file, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err == nil {
				w = file
				closeFn = func() { file.Close() }
			}
		}
		if err != nil {
			w = io.Discard
		}
	}
	return slog.New(slog.NewJSONHandler(w, opts)), closeFn
}

func run(ctx context.Context, logger *slog.Logger, f *Flags) error {
	cfg := ampwatch.DefaultConfig()
	if f.Config != "" {
		var err error
		if cfg, err = ampwatch.LoadConfigFile(f.Config); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	cfg.Amplifier.URL = ampwatch.ResolveAmplifierURL(f.AmpURL, cfg, logger)
	if f.Listen != "" {
		cfg.HTTP.Listen = f.Listen
	}

	sinks, err := ampwatch.SinksFromConfig(cfg, nil, logger)
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol or the dashboard in those modes.
	stdoutFree := !f.MCP && !f.TUI && !f.Once
	if len(cfg.Sinks) == 0 && stdoutFree {
		sinks = append(sinks, ampwatch.NewStdoutSink(nil))
	}
	if !stdoutFree {
		sinks = withoutStdout(cfg, sinks, logger)
	}

	mon := ampwatch.New(cfg, logger, sinks...)
	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer mon.Stop()

	if f.Once {
		frame, err := mon.Once(ctx, onceTimeout)
		if err != nil {
			return err
		}
		data, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		os.Stdout.Write([]byte("\n"))
		return nil
	}

	var prog *tea.Program
	if f.TUI {
		prog = tea.NewProgram(dashboard.NewModel(mon), tea.WithAltScreen(), tea.WithContext(ctx))
		mon.AddSink(dashboard.Sink(prog))
	}

	if cfg.HTTP.Listen != "" {
		shutdown := serveHTTP(logger, cfg.HTTP.Listen, mon.Handler())
		defer shutdown()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	pollDone := make(chan error, 1)
	go func() { pollDone <- mon.Run(ctx) }()

	switch {
	case f.MCP:
		srv := mcp.NewServer(&mcp.Implementation{Name: "ampwatch", Version: version}, nil)
		mon.RegisterMCP(srv)
		logger.Info("ampwatch: MCP on stdio")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			return fmt.Errorf("mcp: %w", err)
		}
	case prog != nil:
		if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("dashboard: %w", err)
		}
	default:
		<-ctx.Done()
	}

	cancel()
	<-pollDone
	return nil
}

// withoutStdout drops configured stdout sinks when stdout is taken.
func withoutStdout(cfg *ampwatch.Config, sinks []ampwatch.Sink, logger *slog.Logger) []ampwatch.Sink {
	var kept []ampwatch.Sink
	for i, sc := range cfg.Sinks {
		if sc.Type == "stdout" {
			logger.Warn("ampwatch: stdout sink disabled, stdout is in use")
			continue
		}
		kept = append(kept, sinks[i])
	}
	return kept
}

func serveHTTP(logger *slog.Logger, addr string, h http.Handler) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	go func() {
		logger.Info("ampwatch: http listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ampwatch: http server", "error", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("ampwatch: http shutdown", "error", err)
		}
	}
}
