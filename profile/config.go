package profile

import (
	"fmt"
	"time"

	"github.com/Swind/go-task-profiler/core"
)

const (
	DefaultTaskCount    = 1000
	DefaultTaskDuration = 10 * time.Millisecond
	DefaultWorkers      = 64
)

// Config holds the session parameters and collaborators of a Controller.
type Config struct {
	// TaskCount is the number of tasks per session.
	TaskCount int

	// TaskDuration is the simulated work each task performs.
	TaskDuration time.Duration

	// Workers sizes the pool NewStandaloneController creates. Controllers
	// built on a caller-supplied pool ignore it.
	Workers int

	// HistorySize is how many finished sessions History retains.
	HistorySize int

	Logger   core.Logger
	Metrics  core.Metrics
	Observer Observer

	// Clock replaces time.Now for session and task timestamps.
	Clock func() time.Time
}

// DefaultConfig returns 1000 tasks of 10ms each on a 64 worker pool.
func DefaultConfig() Config {
	return Config{
		TaskCount:    DefaultTaskCount,
		TaskDuration: DefaultTaskDuration,
		Workers:      DefaultWorkers,
	}
}

// Validate checks the numeric parameters.
func (c Config) Validate() error {
	if c.TaskCount <= 0 {
		return fmt.Errorf("task count must be positive, got %d", c.TaskCount)
	}
	if c.TaskDuration < 0 {
		return fmt.Errorf("task duration must not be negative, got %v", c.TaskDuration)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history size must not be negative, got %d", c.HistorySize)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.HistorySize == 0 {
		c.HistorySize = defaultHistoryCapacity
	}
	if c.Logger == nil {
		c.Logger = core.NewNoOpLogger()
	}
	if c.Metrics == nil {
		c.Metrics = &core.NilMetrics{}
	}
	if c.Observer == nil {
		c.Observer = NopObserver{}
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}
