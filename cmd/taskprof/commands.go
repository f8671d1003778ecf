package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/Swind/go-task-profiler/core"
	"github.com/Swind/go-task-profiler/internal/config"
	promexp "github.com/Swind/go-task-profiler/observability/prometheus"
	"github.com/Swind/go-task-profiler/profile"
	"github.com/Swind/go-task-profiler/render"
	"github.com/Swind/go-task-profiler/server"
)

// drainTimeout bounds how long a cancelled session may take to hand back
// its partial result.
const drainTimeout = 10 * time.Second

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one profiling session and print its timeline",
		Flags: append(sessionFlags(),
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Value:   profile.StrategyConcurrent.String(),
				Usage:   "serial or concurrent",
			},
		),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	strategy, err := profile.ParseStrategy(c.String("strategy"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	settings, err := loadSettings(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Invalid configuration: %v", err), 1)
	}

	ctrl, err := newController(c, settings, nil)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	defer ctrl.Close()

	result, runErr := profileSession(c, ctrl, strategy, settings)
	if result.ID != "" {
		if err := writeResult(c.App.Writer, result, settings); err != nil {
			return cli.Exit(fmt.Sprintf("Failed to write result: %v", err), 1)
		}
	}
	if runErr != nil {
		return cli.Exit(runErr.Error(), 1)
	}
	return nil
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:   "compare",
		Usage:  "Run a serial session then a concurrent one and compare them",
		Flags:  sessionFlags(),
		Action: compareAction,
	}
}

func compareAction(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Invalid configuration: %v", err), 1)
	}

	ctrl, err := newController(c, settings, nil)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	defer ctrl.Close()

	var results []profile.SessionResult
	for _, strategy := range []profile.Strategy{profile.StrategySerial, profile.StrategyConcurrent} {
		result, runErr := profileSession(c, ctrl, strategy, settings)
		if result.ID != "" {
			if err := writeResult(c.App.Writer, result, settings); err != nil {
				return cli.Exit(fmt.Sprintf("Failed to write result: %v", err), 1)
			}
		}
		if runErr != nil {
			return cli.Exit(runErr.Error(), 1)
		}
		results = append(results, result)
	}

	if settings.Output == "timeline" {
		_, _ = fmt.Fprintln(c.App.Writer, comparisonLine(results[0], results[1]))
	}
	return nil
}

// comparisonLine summarises a serial and a concurrent result.
func comparisonLine(serial, concurrent profile.SessionResult) string {
	line := fmt.Sprintf("serial: %.2fs  concurrent: %.2fs", serial.Span(), concurrent.Span())
	if concurrent.Span() > 0 {
		line += fmt.Sprintf("  speedup: %.1fx", serial.Span()/concurrent.Span())
	}
	return line
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the profiler over HTTP with Prometheus metrics",
		Flags: append(sessionFlags(),
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Listen address",
			},
		),
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Invalid configuration: %v", err), 1)
	}
	logger := newLogger(c, settings)

	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporter, err := promexp.NewMetricsExporter(settings.MetricsNamespace, reg, promexp.ExporterOptions{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to register metrics: %v", err), 1)
	}

	ctrl, err := newController(c, settings, exporter)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	defer ctrl.Close()

	poller, err := promexp.NewSnapshotPoller(settings.MetricsNamespace, reg, settings.PollInterval)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to register metrics: %v", err), 1)
	}
	poller.AddRunner("controller", ctrl)
	if pool, ok := ctrl.Pool().(promexp.PoolSnapshotProvider); ok {
		poller.AddPool(ctrl.Pool().ID(), pool)
	}
	poller.Start(c.Context)
	defer poller.Stop()

	srv := server.New(ctrl, server.Options{
		Gatherer: reg,
		Logger:   logger,
		Width:    settings.Width,
	})
	if err := srv.ListenAndServe(c.Context, settings.Listen); err != nil {
		return cli.Exit(fmt.Sprintf("Server failed: %v", err), 1)
	}
	return nil
}

// newController builds a standalone controller from settings. metrics may
// be nil.
func newController(c *cli.Context, settings config.Settings, metrics core.Metrics) (*profile.Controller, error) {
	cfg := settings.ProfileConfig()
	cfg.Logger = newLogger(c, settings)
	if metrics != nil {
		cfg.Metrics = metrics
	}
	return profile.NewStandaloneController(cfg)
}

// profileSession runs one session behind a spinner. A session cut short by
// the timeout or an interrupt returns its partial result with an error.
func profileSession(c *cli.Context, ctrl *profile.Controller, strategy profile.Strategy, settings config.Settings) (profile.SessionResult, error) {
	var result profile.SessionResult
	label := fmt.Sprintf("Running %s session (%d tasks)...", strategy, settings.Tasks)

	err := runWithSpinner(c.Context, c.App.ErrWriter, label, func(ctx context.Context) error {
		var err error
		result, err = runSession(ctx, ctrl, strategy, settings.Timeout)
		return err
	})
	return result, err
}

func runSession(ctx context.Context, ctrl *profile.Controller, strategy profile.Strategy, timeout time.Duration) (profile.SessionResult, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := ctrl.Run(runCtx, strategy)
	if err == nil {
		return result, nil
	}
	if runCtx.Err() == nil {
		return profile.SessionResult{}, err
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	partial, waitErr := ctrl.WaitIdle(waitCtx)
	if waitErr != nil {
		return profile.SessionResult{}, fmt.Errorf("session cancelled and did not drain: %w", errors.Join(err, waitErr))
	}
	return partial, fmt.Errorf("session cancelled: %w", err)
}

func writeResult(w io.Writer, result profile.SessionResult, settings config.Settings) error {
	if settings.Output == "timeline" {
		_, err := io.WriteString(w, render.Timeline(result, render.TimelineOptions{
			Width: settings.Width,
			Plain: !isTerminal(w),
		}))
		return err
	}

	serializer, err := render.SerializerFor(settings.Output)
	if err != nil {
		return err
	}
	data, err := serializer.Serialize(result)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
