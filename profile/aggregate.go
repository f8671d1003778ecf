package profile

import (
	"cmp"
	"slices"
	"time"

	"github.com/Swind/go-task-profiler/core"
)

// Aggregator turns a session's raw samples into per-worker timelines.
type Aggregator struct {
	logger core.Logger
}

// NewAggregator creates an Aggregator that logs clamped samples to logger.
func NewAggregator(logger core.Logger) *Aggregator {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	return &Aggregator{logger: logger}
}

// Aggregate is a convenience wrapper around an Aggregator that discards logs.
func Aggregate(samples []Sample) SessionResult {
	return NewAggregator(nil).Aggregate(samples)
}

// Aggregate groups samples by worker and converts their timestamps into
// intervals relative to the earliest session start.
//
// The result depends only on samples: calling it twice on the same slice
// yields equal values. ID, Strategy and Cancelled are left for the caller.
func (a *Aggregator) Aggregate(samples []Sample) SessionResult {
	if len(samples) == 0 {
		return SessionResult{Timelines: []WorkerTimeline{}}
	}

	origin := samples[0].SessionStart()
	for _, s := range samples[1:] {
		if s.SessionStart().Before(origin) {
			origin = s.SessionStart()
		}
	}

	groups := make(map[core.WorkerID][]Interval)
	var finish float64
	for _, s := range samples {
		iv := a.interval(s, origin)
		groups[s.WorkerID()] = append(groups[s.WorkerID()], iv)
		finish = max(finish, iv.Finish)
	}

	timelines := make([]WorkerTimeline, 0, len(groups))
	for workerID, intervals := range groups {
		if len(intervals) == 0 {
			continue
		}
		slices.SortStableFunc(intervals, func(x, y Interval) int {
			if c := cmp.Compare(x.Start, y.Start); c != 0 {
				return c
			}
			return cmp.Compare(x.Finish, y.Finish)
		})
		timelines = append(timelines, WorkerTimeline{WorkerID: workerID, Intervals: intervals})
	}
	slices.SortFunc(timelines, func(x, y WorkerTimeline) int {
		return cmp.Compare(x.WorkerID, y.WorkerID)
	})

	return SessionResult{
		SessionStart:  0,
		SessionFinish: finish,
		Timelines:     timelines,
	}
}

// interval converts s into seconds since origin, clamping inconsistent
// timestamps so a bad sample never produces a negative duration.
func (a *Aggregator) interval(s Sample, origin time.Time) Interval {
	start := s.TaskStart().Sub(origin).Seconds()
	finish := s.TaskFinish().Sub(origin).Seconds()

	if s.TaskStart().Before(s.SessionStart()) {
		invariantViolation(a.logger, "task started before its session",
			core.F("worker", s.WorkerID()),
			core.F("task", s.Index()))
		start = s.SessionStart().Sub(origin).Seconds()
	}
	if finish < start {
		invariantViolation(a.logger, "task finished before it started",
			core.F("worker", s.WorkerID()),
			core.F("task", s.Index()))
		finish = start
	}

	return Interval{Start: start, Finish: finish}
}
