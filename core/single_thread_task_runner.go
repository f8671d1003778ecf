package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// SingleThreadTaskRunner binds a dedicated Goroutine to execute tasks sequentially.
// It guarantees that all tasks submitted to it run on the same Goroutine (Thread Affinity)
// and therefore report the same WorkerID.
//
// Use cases:
// 1. Serial profiling sessions, where every sample must come from one worker
// 2. Blocking IO operations
// 3. Simulating Main Thread / UI Thread behavior
//
// Posting never blocks: tasks wait in an unbounded FIFO queue until the
// dedicated goroutine picks them up.
type SingleThreadTaskRunner struct {
	queue    *FIFOTaskQueue
	signal   chan struct{}
	workerID WorkerID

	// Lifecycle control
	ctx    context.Context
	cancel context.CancelFunc

	// For graceful shutdown
	stopped      chan struct{}
	once         sync.Once
	closed       atomic.Bool
	shutdownChan chan struct{}
	shutdownOnce sync.Once

	running  atomic.Int32
	rejected atomic.Int64

	panicHandler PanicHandler
	metrics      Metrics

	// Metadata
	mu           sync.Mutex
	name         string
	lastTaskName string
	lastTaskAt   time.Time
}

// NewSingleThreadTaskRunner creates and starts a new SingleThreadTaskRunner.
// It immediately spawns a dedicated goroutine for task execution.
func NewSingleThreadTaskRunner() *SingleThreadTaskRunner {
	return NewSingleThreadTaskRunnerWithConfig(nil)
}

// NewSingleThreadTaskRunnerWithConfig creates a runner that reports panics and
// rejections through the handlers in config.
func NewSingleThreadTaskRunnerWithConfig(config *TaskSchedulerConfig) *SingleThreadTaskRunner {
	cfg := config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	r := &SingleThreadTaskRunner{
		queue:        NewFIFOTaskQueue(),
		signal:       make(chan struct{}, 1),
		workerID:     NextWorkerID(),
		ctx:          ctx,
		cancel:       cancel,
		stopped:      make(chan struct{}),
		shutdownChan: make(chan struct{}),
		panicHandler: cfg.PanicHandler,
		metrics:      cfg.Metrics,
		name:         "single-thread",
	}

	// Start the dedicated message loop
	go r.runLoop()

	return r
}

// WorkerID returns the identity every task on this runner observes.
func (r *SingleThreadTaskRunner) WorkerID() WorkerID {
	return r.workerID
}

// Name returns the name of the task runner
func (r *SingleThreadTaskRunner) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// SetName sets the name of the task runner
func (r *SingleThreadTaskRunner) SetName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
}

// PostTask submits a task for execution
func (r *SingleThreadTaskRunner) PostTask(task Task) {
	r.PostTaskNamed("", task)
}

// PostTaskNamed submits a task with a display name used in stats.
func (r *SingleThreadTaskRunner) PostTaskNamed(name string, task Task) {
	r.TryPostTask(name, task)
}

// TryPostTask is PostTaskNamed that reports whether the task was accepted.
// Tasks are rejected once the runner is closed.
func (r *SingleThreadTaskRunner) TryPostTask(name string, task Task) bool {
	if r.closed.Load() {
		r.rejected.Add(1)
		r.metrics.RecordTaskRejected(r.Name(), "closed")
		return false
	}

	r.queue.Push(task, name)
	r.metrics.RecordQueueDepth(r.Name(), r.queue.Len())

	select {
	case r.signal <- struct{}{}:
	default:
	}
	return true
}

// PendingTaskCount returns the number of queued tasks waiting to run.
func (r *SingleThreadTaskRunner) PendingTaskCount() int {
	return r.queue.Len()
}

// Stats returns current observability data for this runner.
func (r *SingleThreadTaskRunner) Stats() RunnerStats {
	r.mu.Lock()
	name, lastName, lastAt := r.name, r.lastTaskName, r.lastTaskAt
	r.mu.Unlock()

	return RunnerStats{
		Name:         name,
		Type:         "single_thread",
		WorkerID:     r.workerID,
		Pending:      r.queue.Len(),
		Running:      int(r.running.Load()),
		Rejected:     r.rejected.Load(),
		Closed:       r.IsClosed(),
		LastTaskName: lastName,
		LastTaskAt:   lastAt,
	}
}

// Shutdown marks the runner as closed and signals shutdown waiters.
// Unlike Stop(), this method does NOT immediately terminate the runLoop.
// This allows tasks to call Shutdown() from within themselves.
//
// After calling Shutdown():
// - WaitShutdown() will return
// - IsClosed() will return true
// - New tasks posted will be rejected
// - Existing queued tasks will still execute, then the runLoop exits
func (r *SingleThreadTaskRunner) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.closed.Store(true)
		close(r.shutdownChan)

		// Wake the loop so it notices the queue is drained
		select {
		case r.signal <- struct{}{}:
		default:
		}
	})
}

// IsClosed returns true if the runner has been shut down or stopped
func (r *SingleThreadTaskRunner) IsClosed() bool {
	return r.closed.Load()
}

// Stop terminates the runLoop without draining and waits for the task in
// flight, if any, to return.
func (r *SingleThreadTaskRunner) Stop() {
	r.once.Do(func() {
		r.Shutdown()
		r.cancel()
		<-r.stopped
	})
}

// runLoop is the core of this runner, it occupies a dedicated goroutine
func (r *SingleThreadTaskRunner) runLoop() {
	defer close(r.stopped)

	runCtx := WithWorkerID(context.WithValue(r.ctx, taskRunnerKey, r), r.workerID)

	for {
		if r.ctx.Err() != nil {
			return
		}

		if item, ok := r.queue.Pop(); ok {
			r.runTask(runCtx, item)
			continue
		}

		if r.closed.Load() {
			return
		}

		select {
		case <-r.signal:
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *SingleThreadTaskRunner) runTask(ctx context.Context, item TaskItem) {
	r.running.Add(1)
	defer func() {
		r.running.Add(-1)

		r.mu.Lock()
		r.lastTaskName = item.Name
		r.lastTaskAt = time.Now()
		r.mu.Unlock()

		if rec := recover(); rec != nil {
			r.panicHandler.HandlePanic(ctx, r.Name(), r.workerID, rec, debug.Stack())
			r.metrics.RecordTaskPanic(r.Name(), rec)
		}
	}()

	item.Task(ctx)
}

// =============================================================================
// Synchronization Methods
// =============================================================================

// WaitIdle blocks until all currently queued tasks have completed execution.
// This is implemented by posting a barrier task and waiting for it to execute.
//
// Returns error if:
// - Context is cancelled or deadline exceeded
// - Runner is closed when WaitIdle is called, or stops before the barrier runs
//
// Note: Tasks posted after WaitIdle is called are not waited for.
func (r *SingleThreadTaskRunner) WaitIdle(ctx context.Context) error {
	if r.IsClosed() {
		return fmt.Errorf("runner is closed")
	}

	done := make(chan struct{})
	r.PostTask(func(taskCtx context.Context) {
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stopped:
		return fmt.Errorf("runner stopped during WaitIdle")
	}
}

// WaitShutdown blocks until Shutdown() is called on this runner.
// Returns error if context is cancelled or deadline exceeded.
func (r *SingleThreadTaskRunner) WaitShutdown(ctx context.Context) error {
	select {
	case <-r.shutdownChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
