package profile

import (
	"reflect"
	"testing"
	"time"

	"github.com/Swind/go-task-profiler/core"
)

// TestAggregate_Empty verifies empty input yields an empty, non-nil result
func TestAggregate_Empty(t *testing.T) {
	result := Aggregate(nil)

	if result.SessionFinish != 0 {
		t.Errorf("Expected SessionFinish 0, got %f", result.SessionFinish)
	}
	if result.Timelines == nil {
		t.Error("Expected non-nil empty timelines")
	}
	if len(result.Timelines) != 0 {
		t.Errorf("Expected 0 timelines, got %d", len(result.Timelines))
	}
	if result.TaskCount() != 0 || result.WorkerCount() != 0 {
		t.Errorf("Expected zero counts, got tasks=%d workers=%d", result.TaskCount(), result.WorkerCount())
	}
}

// TestAggregate_GroupsAndSorts verifies grouping by worker and ordering
// Given: Samples from workers 3 and 1, submitted out of start order
// When: Aggregate runs
// Then: Timelines are ordered by worker, intervals by start, times are relative
func TestAggregate_GroupsAndSorts(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []Sample{
		NewSample(0, 3, base, at(base, 200), at(base, 300)),
		NewSample(1, 1, base, at(base, 500), at(base, 750)),
		NewSample(2, 3, base, at(base, 0), at(base, 100)),
		NewSample(3, 1, base, at(base, 100), at(base, 250)),
	}

	result := Aggregate(samples)

	want := []WorkerTimeline{
		{WorkerID: 1, Intervals: []Interval{{Start: 0.1, Finish: 0.25}, {Start: 0.5, Finish: 0.75}}},
		{WorkerID: 3, Intervals: []Interval{{Start: 0, Finish: 0.1}, {Start: 0.2, Finish: 0.3}}},
	}
	if !reflect.DeepEqual(result.Timelines, want) {
		t.Fatalf("Unexpected timelines:\n got: %+v\nwant: %+v", result.Timelines, want)
	}
	if result.SessionStart != 0 {
		t.Errorf("Expected SessionStart 0, got %f", result.SessionStart)
	}
	if result.SessionFinish != 0.75 {
		t.Errorf("Expected SessionFinish 0.75, got %f", result.SessionFinish)
	}
	if result.TaskCount() != 4 {
		t.Errorf("Expected 4 tasks, got %d", result.TaskCount())
	}
}

// TestAggregate_EarliestSessionStart verifies the minimum session start is the origin
func TestAggregate_EarliestSessionStart(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []Sample{
		NewSample(0, 1, at(base, 10), at(base, 20), at(base, 30)),
		NewSample(1, 1, base, at(base, 40), at(base, 50)),
	}

	result := Aggregate(samples)

	got := result.Timelines[0].Intervals[0]
	if got.Start != 0.02 || got.Finish != 0.03 {
		t.Errorf("Expected first interval [0.02, 0.03], got [%f, %f]", got.Start, got.Finish)
	}
}

// TestAggregate_Idempotent verifies the result depends only on the snapshot
func TestAggregate_Idempotent(t *testing.T) {
	base := time.Now()
	var samples []Sample
	for i := range 50 {
		samples = append(samples, NewSample(i, core.WorkerID(i%5+1), base, at(base, i*3), at(base, i*3+2)))
	}

	first := Aggregate(samples)
	second := Aggregate(samples)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("Expected identical results for the same snapshot")
	}
}

// TestAggregate_DoesNotReorderInput verifies the caller's slice is untouched
func TestAggregate_DoesNotReorderInput(t *testing.T) {
	base := time.Now()
	samples := []Sample{
		NewSample(0, 2, base, at(base, 5), at(base, 6)),
		NewSample(1, 1, base, at(base, 1), at(base, 2)),
	}

	_ = Aggregate(samples)

	if samples[0].Index() != 0 || samples[1].Index() != 1 {
		t.Error("Aggregate reordered its input")
	}
}
