package profile

import (
	"time"

	"github.com/Swind/go-task-profiler/core"
)

// Interval is one task execution, in seconds since the session start.
type Interval struct {
	Start  float64 `json:"start" yaml:"start" toml:"start"`
	Finish float64 `json:"finish" yaml:"finish" toml:"finish"`
}

// Duration returns Finish - Start in seconds.
func (i Interval) Duration() float64 {
	return i.Finish - i.Start
}

// WorkerTimeline holds the intervals one worker executed, sorted by start.
// Intervals may overlap: a worker identity is not required to be exclusive.
type WorkerTimeline struct {
	WorkerID  core.WorkerID `json:"worker_id" yaml:"worker_id" toml:"worker_id"`
	Intervals []Interval    `json:"intervals" yaml:"intervals" toml:"intervals"`
}

// SessionResult is the published outcome of one session. It replaces the
// previous result entirely.
type SessionResult struct {
	ID            string           `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Strategy      Strategy         `json:"strategy,omitempty" yaml:"strategy,omitempty" toml:"strategy,omitempty"`
	SessionStart  float64          `json:"session_start" yaml:"session_start" toml:"session_start"`
	SessionFinish float64          `json:"session_finish" yaml:"session_finish" toml:"session_finish"`
	Cancelled     bool             `json:"cancelled" yaml:"cancelled" toml:"cancelled"`
	Timelines     []WorkerTimeline `json:"timelines" yaml:"timelines" toml:"timelines"`
}

// TaskCount returns the number of intervals across all workers.
func (r SessionResult) TaskCount() int {
	n := 0
	for _, tl := range r.Timelines {
		n += len(tl.Intervals)
	}
	return n
}

// WorkerCount returns the number of distinct workers that ran a task.
func (r SessionResult) WorkerCount() int {
	return len(r.Timelines)
}

// Span returns the session length in seconds.
func (r SessionResult) Span() float64 {
	return r.SessionFinish - r.SessionStart
}

// Elapsed returns Span as a time.Duration.
func (r SessionResult) Elapsed() time.Duration {
	return time.Duration(r.Span() * float64(time.Second))
}
