// Package config resolves taskprof settings from defaults, an optional config
// file and TASKPROF_ environment variables. Command-line flags are applied on
// top by the caller through Set.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Swind/go-task-profiler/core"
	"github.com/Swind/go-task-profiler/profile"
	"github.com/Swind/go-task-profiler/render"
)

const (
	KeyTasks            = "tasks"
	KeyDuration         = "duration"
	KeyWorkers          = "workers"
	KeyHistory          = "history"
	KeyOutput           = "output"
	KeyWidth            = "width"
	KeyTimeout          = "timeout"
	KeyLogLevel         = "log_level"
	KeyListen           = "listen"
	KeyMetricsNamespace = "metrics.namespace"
	KeyPollInterval     = "metrics.poll_interval"

	EnvPrefix  = "TASKPROF"
	configName = "taskprof"
	configDir  = "taskprof"
)

// Settings is the resolved configuration of one taskprof invocation.
type Settings struct {
	Tasks    int
	Duration time.Duration
	Workers  int
	History  int

	Output  string
	Width   int
	Timeout time.Duration

	LogLevel string

	Listen           string
	MetricsNamespace string
	PollInterval     time.Duration
}

// New returns a viper instance with taskprof defaults and environment
// binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyTasks, profile.DefaultTaskCount)
	v.SetDefault(KeyDuration, profile.DefaultTaskDuration)
	v.SetDefault(KeyWorkers, profile.DefaultWorkers)
	v.SetDefault(KeyHistory, 32)
	v.SetDefault(KeyOutput, "timeline")
	v.SetDefault(KeyWidth, render.DefaultWidth)
	v.SetDefault(KeyTimeout, time.Duration(0))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyListen, ":8080")
	v.SetDefault(KeyMetricsNamespace, "taskprof")
	v.SetDefault(KeyPollInterval, 5*time.Second)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file and returns the resolved settings.
//
// An explicit path must exist. Without one, taskprof.{toml,yaml,json} is
// looked up in the working directory and the user config directory, and a
// missing file is not an error.
func Load(v *viper.Viper, path string) (Settings, error) {
	if v == nil {
		v = New()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configDir))
		}
		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return Settings{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	s := Settings{
		Tasks:            v.GetInt(KeyTasks),
		Duration:         v.GetDuration(KeyDuration),
		Workers:          v.GetInt(KeyWorkers),
		History:          v.GetInt(KeyHistory),
		Output:           strings.ToLower(v.GetString(KeyOutput)),
		Width:            v.GetInt(KeyWidth),
		Timeout:          v.GetDuration(KeyTimeout),
		LogLevel:         v.GetString(KeyLogLevel),
		Listen:           v.GetString(KeyListen),
		MetricsNamespace: v.GetString(KeyMetricsNamespace),
		PollInterval:     v.GetDuration(KeyPollInterval),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks ranges and names.
func (s Settings) Validate() error {
	var errs []error
	if s.Tasks <= 0 {
		errs = append(errs, fmt.Errorf("tasks must be positive, got %d", s.Tasks))
	}
	if s.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration must not be negative, got %v", s.Duration))
	}
	if s.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", s.Workers))
	}
	if s.History < 0 {
		errs = append(errs, fmt.Errorf("history must not be negative, got %d", s.History))
	}
	if s.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %v", s.Timeout))
	}
	if s.Output != "timeline" {
		if _, err := render.SerializerFor(s.Output); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := core.ParseLogLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level.
func (s Settings) Level() core.LogLevel {
	level, _ := core.ParseLogLevel(s.LogLevel)
	return level
}

// ProfileConfig maps the settings onto a controller configuration.
// Collaborators (logger, metrics, observer) are left for the caller.
func (s Settings) ProfileConfig() profile.Config {
	cfg := profile.DefaultConfig()
	cfg.TaskCount = s.Tasks
	cfg.TaskDuration = s.Duration
	cfg.Workers = s.Workers
	cfg.HistorySize = s.History
	return cfg
}
