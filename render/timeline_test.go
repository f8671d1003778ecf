package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/go-task-profiler/profile"
)

func TestTimeline_Header(t *testing.T) {
	out := Timeline(sampleResult(), TimelineOptions{Width: 20, Plain: true})

	assert.Contains(t, out, "concurrent session")
	assert.Contains(t, out, "time: 0.50s  tasks: 3  workers: 2")
	assert.NotContains(t, out, "cancelled")
}

func TestTimeline_RowsPerWorker(t *testing.T) {
	out := Timeline(sampleResult(), TimelineOptions{Width: 20, Plain: true})

	var rows []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "worker") {
			rows = append(rows, strings.TrimRight(line, " "))
		}
	}
	require.Len(t, rows, 2)
	assert.Equal(t, "worker 2 │"+strings.Repeat(busyCell, 20)+"│", rows[0])
	assert.Equal(t, "worker 5 │"+strings.Repeat(idleCell, 5)+strings.Repeat(busyCell, 10)+strings.Repeat(idleCell, 5)+"│", rows[1])
}

func TestTimeline_PadsLabels(t *testing.T) {
	result := profile.SessionResult{
		SessionFinish: 1,
		Timelines: []profile.WorkerTimeline{
			{WorkerID: 7, Intervals: []profile.Interval{{Start: 0, Finish: 1}}},
			{WorkerID: 123, Intervals: []profile.Interval{{Start: 0, Finish: 1}}},
		},
	}

	out := Timeline(result, TimelineOptions{Width: 10, Plain: true})

	assert.Contains(t, out, "worker   7 │")
	assert.Contains(t, out, "worker 123 │")
}

func TestTimeline_EmptyAndCancelled(t *testing.T) {
	result := profile.Aggregate(nil)
	result.Cancelled = true

	out := Timeline(result, TimelineOptions{Plain: true})

	assert.Contains(t, out, "tasks: 0  workers: 0")
	assert.Contains(t, out, "session cancelled")
	assert.Contains(t, out, "no samples recorded")
}

func TestColumns(t *testing.T) {
	tests := []struct {
		name      string
		intervals []profile.Interval
		span      float64
		want      string
	}{
		{"first half", []profile.Interval{{Start: 0, Finish: 0.5}}, 1, "##########.........."},
		{"zero length stays visible", []profile.Interval{{Start: 0.5, Finish: 0.5}}, 1, "..........#........."},
		{"finish at span", []profile.Interval{{Start: 0.95, Finish: 1}}, 1, "...................#"},
		{"zero span", []profile.Interval{{Start: 0, Finish: 0}}, 0, "#..................."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			for _, c := range Columns(tt.intervals, tt.span, 20) {
				if c {
					b.WriteByte('#')
				} else {
					b.WriteByte('.')
				}
			}
			assert.Equal(t, tt.want, b.String())
		})
	}
}
