//go:build !profilerstrict

package profile

import (
	"testing"
	"time"
)

// TestAggregate_ClampsInconsistentSample verifies default builds clamp bad timestamps
// Given: A sample whose finish precedes its start
// When: Aggregate runs
// Then: The interval has zero duration and a warning is logged
func TestAggregate_ClampsInconsistentSample(t *testing.T) {
	logger := &recordingLogger{}
	base := time.Now()
	samples := []Sample{NewSample(0, 1, base, at(base, 50), at(base, 20))}

	result := NewAggregator(logger).Aggregate(samples)

	iv := result.Timelines[0].Intervals[0]
	if iv.Duration() != 0 {
		t.Errorf("Expected clamped duration 0, got %f", iv.Duration())
	}
	if iv.Start != 0.05 {
		t.Errorf("Expected start 0.05, got %f", iv.Start)
	}
	if logger.count("WARN invariant violation") != 1 {
		t.Errorf("Expected 1 invariant warning, got %v", logger.lines)
	}
}

// TestAggregate_ClampsStartBeforeSession verifies a task cannot start before its session
func TestAggregate_ClampsStartBeforeSession(t *testing.T) {
	logger := &recordingLogger{}
	base := time.Now()
	samples := []Sample{NewSample(0, 1, base, at(base, -10), at(base, 10))}

	result := NewAggregator(logger).Aggregate(samples)

	iv := result.Timelines[0].Intervals[0]
	if iv.Start != 0 {
		t.Errorf("Expected start clamped to 0, got %f", iv.Start)
	}
	if iv.Finish != 0.01 {
		t.Errorf("Expected finish 0.01, got %f", iv.Finish)
	}
}
