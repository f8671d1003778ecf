package taskprofiler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/Swind/go-task-profiler/core"
)

// GoroutineThreadPool manages a set of worker goroutines
// Responsible for pulling tasks from the TaskScheduler and executing them.
// Every worker owns one core.WorkerID for its whole life and exposes it to
// the tasks it runs through the task context.
type GoroutineThreadPool struct {
	id        string
	workers   int
	scheduler *core.TaskScheduler
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	runningMu sync.RWMutex

	workerIDsMu sync.Mutex
	workerIDs   []core.WorkerID
}

var _ core.ThreadPool = (*GoroutineThreadPool)(nil)

// NewGoroutineThreadPool creates a new GoroutineThreadPool
func NewGoroutineThreadPool(id string, workers int) *GoroutineThreadPool {
	return NewGoroutineThreadPoolWithConfig(id, workers, core.DefaultTaskSchedulerConfig())
}

// NewGoroutineThreadPoolWithConfig creates a pool whose panics, rejections and
// queue depth are reported through config.
func NewGoroutineThreadPoolWithConfig(id string, workers int, config *core.TaskSchedulerConfig) *GoroutineThreadPool {
	if workers < 1 {
		workers = 1
	}
	return &GoroutineThreadPool{
		id:        id,
		workers:   workers,
		scheduler: core.NewTaskSchedulerWithConfig(id, workers, config),
	}
}

// Start starts all worker goroutines
func (tg *GoroutineThreadPool) Start(ctx context.Context) {
	tg.runningMu.Lock()
	defer tg.runningMu.Unlock()

	if tg.running {
		return // Already running
	}
	if tg.scheduler.IsShuttingDown() {
		return // A stopped pool cannot be restarted
	}

	tg.ctx, tg.cancel = context.WithCancel(ctx)
	tg.running = true

	tg.workerIDsMu.Lock()
	tg.workerIDs = make([]core.WorkerID, tg.workers)
	for i := range tg.workerIDs {
		tg.workerIDs[i] = core.NextWorkerID()
	}
	ids := tg.workerIDs
	tg.workerIDsMu.Unlock()

	for _, workerID := range ids {
		tg.wg.Add(1)
		go tg.workerLoop(workerID, tg.ctx)
	}
}

// Stop stops the thread pool
func (tg *GoroutineThreadPool) Stop() {
	// Always shutdown scheduler to release queued tasks,
	// even if pool was never started
	tg.scheduler.Shutdown()

	tg.runningMu.Lock()
	if !tg.running {
		tg.runningMu.Unlock()
		return
	}
	tg.runningMu.Unlock()

	if tg.cancel != nil {
		tg.cancel()
	}
	tg.Join()

	tg.runningMu.Lock()
	tg.running = false
	tg.runningMu.Unlock()
}

// ID returns the ID of the thread pool
func (tg *GoroutineThreadPool) ID() string {
	return tg.id
}

// IsRunning returns whether the thread pool is running
func (tg *GoroutineThreadPool) IsRunning() bool {
	tg.runningMu.RLock()
	defer tg.runningMu.RUnlock()
	return tg.running
}

// WorkerIDs returns the identities of the workers started by the last Start.
func (tg *GoroutineThreadPool) WorkerIDs() []core.WorkerID {
	tg.workerIDsMu.Lock()
	defer tg.workerIDsMu.Unlock()
	return append([]core.WorkerID(nil), tg.workerIDs...)
}

// workerLoop is the main loop for each worker
func (tg *GoroutineThreadPool) workerLoop(workerID core.WorkerID, ctx context.Context) {
	defer tg.wg.Done()
	stopCh := ctx.Done()
	taskCtx := core.WithWorkerID(ctx, workerID)

	for {
		item, ok := tg.scheduler.GetWork(stopCh)
		if !ok {
			// Scheduler closed or context canceled
			return
		}

		tg.scheduler.OnTaskStart()
		tg.runTask(taskCtx, workerID, item)
	}
}

// runTask executes one task and keeps the worker alive if it panics.
func (tg *GoroutineThreadPool) runTask(ctx context.Context, workerID core.WorkerID, item core.TaskItem) {
	defer func() {
		tg.scheduler.OnTaskEnd()
		if r := recover(); r != nil {
			tg.scheduler.GetPanicHandler().HandlePanic(ctx, tg.id, workerID, r, debug.Stack())
			tg.scheduler.GetMetrics().RecordTaskPanic(tg.id, r)
		}
	}()
	item.Task(ctx)
}

// Join waits for all worker goroutines to finish
func (tg *GoroutineThreadPool) Join() {
	tg.wg.Wait()
}

// WorkerCount returns the number of workers
func (tg *GoroutineThreadPool) WorkerCount() int {
	return tg.workers
}

func (tg *GoroutineThreadPool) QueuedTaskCount() int {
	return tg.scheduler.QueuedTaskCount()
}

func (tg *GoroutineThreadPool) ActiveTaskCount() int {
	return tg.scheduler.ActiveTaskCount()
}

// PostInternal queues task for the next free worker. Tasks posted after Stop
// are rejected through the scheduler's RejectedTaskHandler and reported as false.
func (tg *GoroutineThreadPool) PostInternal(task core.Task, name string) bool {
	return tg.scheduler.PostInternal(task, name)
}

// GetScheduler exposes the pool's work source.
func (tg *GoroutineThreadPool) GetScheduler() *core.TaskScheduler {
	return tg.scheduler
}

// Stats returns current observability data for this pool.
func (tg *GoroutineThreadPool) Stats() core.PoolStats {
	return core.PoolStats{
		ID:      tg.id,
		Workers: tg.workers,
		Queued:  tg.QueuedTaskCount(),
		Active:  tg.ActiveTaskCount(),
		Running: tg.IsRunning(),
	}
}

func (tg *GoroutineThreadPool) String() string {
	return fmt.Sprintf("GoroutineThreadPool(%s, workers=%d)", tg.id, tg.workers)
}
