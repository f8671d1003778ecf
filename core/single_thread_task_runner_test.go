package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestSingleThreadTaskRunner_ExecutionOrder verifies submission order is kept
// Given: A runner with 100 posted tasks
// When: The runner goes idle
// Then: Tasks ran in the order they were posted
func TestSingleThreadTaskRunner_ExecutionOrder(t *testing.T) {
	// Arrange
	runner := NewSingleThreadTaskRunner()
	defer runner.Stop()

	var mu sync.Mutex
	var order []int

	// Act
	for i := 0; i < 100; i++ {
		id := i
		runner.PostTask(func(ctx context.Context) {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := runner.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}

	// Assert
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 100 {
		t.Fatalf("Expected 100 tasks executed, got %d", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("Task order incorrect: expected %d at position %d, got %d", i, i, got)
		}
	}
}

// TestSingleThreadTaskRunner_WorkerIdentity verifies every task sees the runner's WorkerID
func TestSingleThreadTaskRunner_WorkerIdentity(t *testing.T) {
	runner := NewSingleThreadTaskRunner()
	defer runner.Stop()

	want := runner.WorkerID()
	if want == NoWorker {
		t.Fatal("runner has no worker identity")
	}

	var mismatches atomic.Int32
	var sawRunner atomic.Bool
	for i := 0; i < 10; i++ {
		runner.PostTask(func(ctx context.Context) {
			if id, ok := CurrentWorkerID(ctx); !ok || id != want {
				mismatches.Add(1)
			}
			if GetCurrentTaskRunner(ctx) == TaskRunner(runner) {
				sawRunner.Store(true)
			}
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := runner.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}

	if mismatches.Load() != 0 {
		t.Errorf("%d tasks saw a different worker identity", mismatches.Load())
	}
	if !sawRunner.Load() {
		t.Error("GetCurrentTaskRunner did not return the executing runner")
	}
}

// TestSingleThreadTaskRunner_ShutdownDrains verifies queued tasks still run after Shutdown
// Given: A runner blocked on its first task with more tasks queued
// When: Shutdown is called, then the first task is released
// Then: All queued tasks run, later posts are rejected
func TestSingleThreadTaskRunner_ShutdownDrains(t *testing.T) {
	// Arrange
	runner := NewSingleThreadTaskRunner()
	release := make(chan struct{})
	var ran atomic.Int32

	runner.PostTask(func(ctx context.Context) {
		<-release
		ran.Add(1)
	})
	for i := 0; i < 5; i++ {
		runner.PostTask(func(ctx context.Context) { ran.Add(1) })
	}

	// Act
	runner.Shutdown()
	if runner.TryPostTask("late", func(ctx context.Context) { ran.Add(100) }) {
		t.Error("TryPostTask after Shutdown = true, want false")
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := runner.WaitShutdown(ctx); err != nil {
		t.Fatalf("WaitShutdown failed: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for ran.Load() < 6 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	runner.Stop()

	// Assert
	if ran.Load() != 6 {
		t.Errorf("ran = %d, want 6 queued tasks and no rejected one", ran.Load())
	}
	if stats := runner.Stats(); stats.Rejected != 1 || !stats.Closed {
		t.Errorf("Stats() = %+v, want Rejected=1 and Closed", stats)
	}
}

// TestSingleThreadTaskRunner_PanicRecovery verifies a panic does not kill the loop
func TestSingleThreadTaskRunner_PanicRecovery(t *testing.T) {
	logger := NewNoOpLogger()
	runner := NewSingleThreadTaskRunnerWithConfig(&TaskSchedulerConfig{
		PanicHandler: &DefaultPanicHandler{Logger: logger},
	})
	defer runner.Stop()
	runner.SetName("panicky")

	var after atomic.Bool
	runner.PostTaskNamed("boom", func(ctx context.Context) { panic("boom") })
	runner.PostTaskNamed("after", func(ctx context.Context) { after.Store(true) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := runner.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}

	if !after.Load() {
		t.Error("task after panic did not run")
	}
	if runner.Name() != "panicky" {
		t.Errorf("Name() = %q, want \"panicky\"", runner.Name())
	}
}

// TestSingleThreadTaskRunner_StopInterruptsWaiters verifies Stop releases WaitIdle
func TestSingleThreadTaskRunner_StopInterruptsWaiters(t *testing.T) {
	runner := NewSingleThreadTaskRunner()
	runner.Stop()

	if err := runner.WaitIdle(context.Background()); err == nil {
		t.Error("WaitIdle on stopped runner = nil, want error")
	}
	if !runner.IsClosed() {
		t.Error("IsClosed() = false after Stop")
	}
}
