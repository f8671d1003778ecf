package profile

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Swind/go-task-profiler/core"
)

// recordingLogger keeps every line it receives so tests can assert on them.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) record(level, msg string, fields []core.Field) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	l.mu.Lock()
	l.lines = append(l.lines, b.String())
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, fields ...core.Field) { l.record("DEBUG", msg, fields) }
func (l *recordingLogger) Info(msg string, fields ...core.Field)  { l.record("INFO", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...core.Field)  { l.record("WARN", msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...core.Field) { l.record("ERROR", msg, fields) }

// count returns how many lines start with prefix.
func (l *recordingLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// countingMetrics counts task and session events.
type countingMetrics struct {
	core.NilMetrics

	mu        sync.Mutex
	durations int
	skipped   int
	sessions  map[string]int
}

func (m *countingMetrics) RecordTaskDuration(runnerName string, d time.Duration) {
	m.mu.Lock()
	m.durations++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordTaskSkipped(runnerName string) {
	m.mu.Lock()
	m.skipped++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordSession(strategy, outcome string, tasks, workers int, d time.Duration) {
	m.mu.Lock()
	if m.sessions == nil {
		m.sessions = make(map[string]int)
	}
	m.sessions[strategy+"/"+outcome]++
	m.mu.Unlock()
}

func (m *countingMetrics) snapshot() (durations, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.durations, m.skipped
}

// at returns a time offset from base by ms milliseconds.
func at(base time.Time, ms int) time.Time {
	return base.Add(time.Duration(ms) * time.Millisecond)
}

// nonOverlapping reports an error unless intervals are ascending by start and
// each one begins at or after the previous finish.
func nonOverlapping(intervals []Interval) error {
	for i := 1; i < len(intervals); i++ {
		prev, cur := intervals[i-1], intervals[i]
		if cur.Start < prev.Start {
			return fmt.Errorf("interval %d starts at %f before interval %d at %f", i, cur.Start, i-1, prev.Start)
		}
		if cur.Start < prev.Finish {
			return fmt.Errorf("interval %d starts at %f before interval %d finished at %f", i, cur.Start, i-1, prev.Finish)
		}
	}
	return nil
}
