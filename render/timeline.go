package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Swind/go-task-profiler/profile"
)

const (
	DefaultWidth = 60
	minWidth     = 10

	busyCell = "█"
	idleCell = "·"
)

// TimelineOptions controls the text timeline.
type TimelineOptions struct {
	// Width is the number of grid columns between session start and finish.
	Width int

	// Plain disables colors and bold text.
	Plain bool
}

// Timeline renders result as a header line followed by one row per worker.
// Each row maps the worker's intervals onto a fixed-width grid spanning the
// whole session, so overlap between workers reads vertically.
func Timeline(result profile.SessionResult, opts TimelineOptions) string {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	width = max(width, minWidth)
	s := newStyles(opts.Plain)

	lines := []string{
		s.title.Render(title(result)),
		s.header.Render(fmt.Sprintf("time: %.2fs  tasks: %d  workers: %d",
			result.Span(), result.TaskCount(), result.WorkerCount())),
	}
	if result.Cancelled {
		lines = append(lines, s.warn.Render("session cancelled, partial result"))
	}

	if result.TaskCount() == 0 {
		lines = append(lines, s.empty.Render("no samples recorded"))
		return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
	}

	labelWidth := 0
	for _, tl := range result.Timelines {
		labelWidth = max(labelWidth, len(tl.WorkerID.String()))
	}

	for _, tl := range result.Timelines {
		label := s.label.Render(fmt.Sprintf("worker %*s", labelWidth, tl.WorkerID))
		row := renderRow(Columns(tl.Intervals, result.Span(), width), s)
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, label, " │", row, "│"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

func title(result profile.SessionResult) string {
	if result.Strategy.Valid() {
		return fmt.Sprintf("%s session", result.Strategy)
	}
	return "session"
}

// Columns marks which of width grid cells are covered by intervals in a
// session of span seconds. Every interval covers at least one cell, so
// zero-length tasks stay visible.
func Columns(intervals []profile.Interval, span float64, width int) []bool {
	cells := make([]bool, width)
	if width == 0 {
		return cells
	}
	if span <= 0 {
		if len(intervals) > 0 {
			cells[0] = true
		}
		return cells
	}

	for _, iv := range intervals {
		from := int(math.Floor(iv.Start / span * float64(width)))
		to := int(math.Ceil(iv.Finish / span * float64(width)))
		from = min(max(from, 0), width-1)
		to = min(max(to, from+1), width)
		for c := from; c < to; c++ {
			cells[c] = true
		}
	}
	return cells
}

func renderRow(cells []bool, s styles) string {
	var b strings.Builder
	for i := 0; i < len(cells); {
		j := i
		for j < len(cells) && cells[j] == cells[i] {
			j++
		}
		if cells[i] {
			b.WriteString(s.busy.Render(strings.Repeat(busyCell, j-i)))
		} else {
			b.WriteString(s.idle.Render(strings.Repeat(idleCell, j-i)))
		}
		i = j
	}
	return b.String()
}
