package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/Swind/go-task-profiler/core"
	"github.com/Swind/go-task-profiler/internal/config"
)

var version = "dev"

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "taskprof",
		Usage:     "Profile serial vs concurrent task execution",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML or YAML config file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log every task sample",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			compareCommand(),
			serveCommand(),
		},
	}
}

// sessionFlags are shared by every command that runs sessions.
func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "tasks",
			Aliases: []string{"n"},
			Usage:   "Number of tasks per session",
		},
		&cli.DurationFlag{
			Name:    "duration",
			Aliases: []string{"d"},
			Usage:   "Simulated work per task",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Pool size for concurrent sessions",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: timeline, json, yaml or toml",
		},
		&cli.IntFlag{
			Name:  "width",
			Usage: "Timeline width in columns",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Cancel a session that runs longer than this (0 disables)",
		},
	}
}

// loadSettings layers flags over environment, config file and defaults.
func loadSettings(c *cli.Context) (config.Settings, error) {
	v := config.New()

	intFlags := map[string]string{
		"tasks":   config.KeyTasks,
		"workers": config.KeyWorkers,
		"width":   config.KeyWidth,
	}
	for flag, key := range intFlags {
		if c.IsSet(flag) {
			v.Set(key, c.Int(flag))
		}
	}
	durationFlags := map[string]string{
		"duration": config.KeyDuration,
		"timeout":  config.KeyTimeout,
	}
	for flag, key := range durationFlags {
		if c.IsSet(flag) {
			v.Set(key, c.Duration(flag))
		}
	}
	stringFlags := map[string]string{
		"output": config.KeyOutput,
		"listen": config.KeyListen,
	}
	for flag, key := range stringFlags {
		if c.IsSet(flag) {
			v.Set(key, c.String(flag))
		}
	}
	if c.Bool("verbose") {
		v.Set(config.KeyLogLevel, "debug")
	}

	return config.Load(v, c.String("config"))
}

func newLogger(c *cli.Context, s config.Settings) core.Logger {
	return core.NewLeveledLogger(c.App.ErrWriter, s.Level())
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
