package core

import (
	"context"
	"testing"
)

// TestGetCurrentTaskRunner verifies extracting task runner from context
// Given: A plain context and a context containing task runner value
// When: GetCurrentTaskRunner is called
// Then: It returns nil for plain context and the stored runner for annotated context
func TestGetCurrentTaskRunner(t *testing.T) {
	// Arrange, Act and Assert - plain context
	if got := GetCurrentTaskRunner(context.Background()); got != nil {
		t.Fatalf("GetCurrentTaskRunner(background) = %#v, want nil", got)
	}

	// Arrange
	runner := NewSingleThreadTaskRunner()
	defer runner.Stop()
	ctx := context.WithValue(context.Background(), taskRunnerKey, TaskRunner(runner))

	// Act and Assert
	if got := GetCurrentTaskRunner(ctx); got != TaskRunner(runner) {
		t.Fatal("GetCurrentTaskRunner(ctx) did not return the runner from context")
	}
}
