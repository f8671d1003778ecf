package core

import (
	"sync/atomic"
)

// TaskScheduler is the work source pool workers pull from.
// Posting never blocks; GetWork blocks on a wake-up signal rather than polling.
type TaskScheduler struct {
	name        string
	queue       *FIFOTaskQueue
	signal      chan struct{}
	workerCount int

	metricQueued   int32 // Waiting in ReadyQueue
	metricActive   int32 // Executing in Worker
	metricRejected atomic.Int64

	// Handlers and Metrics
	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler

	// Lifecycle
	shuttingDown atomic.Bool
}

// NewTaskScheduler creates a FIFO scheduler using the default handlers.
func NewTaskScheduler(name string, workerCount int) *TaskScheduler {
	return NewTaskSchedulerWithConfig(name, workerCount, DefaultTaskSchedulerConfig())
}

// NewTaskSchedulerWithConfig creates a FIFO scheduler; nil handlers in config fall back to defaults.
func NewTaskSchedulerWithConfig(name string, workerCount int, config *TaskSchedulerConfig) *TaskScheduler {
	if workerCount < 1 {
		workerCount = 1
	}
	cfg := config.withDefaults()

	return &TaskScheduler{
		name:                name,
		queue:               NewFIFOTaskQueue(),
		signal:              make(chan struct{}, workerCount*2),
		workerCount:         workerCount,
		panicHandler:        cfg.PanicHandler,
		metrics:             cfg.Metrics,
		rejectedTaskHandler: cfg.RejectedTaskHandler,
	}
}

// PostInternal queues a task and wakes one idle worker.
// It reports false when the scheduler is shutting down and the task was dropped.
func (s *TaskScheduler) PostInternal(task Task, name string) bool {
	if s.shuttingDown.Load() {
		s.metricRejected.Add(1)
		s.rejectedTaskHandler.HandleRejectedTask(s.name, "shutting down")
		s.metrics.RecordTaskRejected(s.name, "shutting down")
		return false
	}

	s.queue.Push(task, name)
	depth := atomic.AddInt32(&s.metricQueued, 1)
	s.metrics.RecordQueueDepth(s.name, int(depth))

	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full, but task is already queued.
		// A busy worker will find it on its next GetWork.
	}
	return true
}

// GetWork (Called by Worker)
func (s *TaskScheduler) GetWork(stopCh <-chan struct{}) (TaskItem, bool) {
	for {
		if item, ok := s.queue.Pop(); ok {
			depth := atomic.AddInt32(&s.metricQueued, -1)
			s.metrics.RecordQueueDepth(s.name, int(depth))
			return item, true
		}

		select {
		case <-s.signal:
			continue
		case <-stopCh:
			return TaskItem{}, false
		}
	}
}

// Shutdown stops accepting tasks and drops everything still queued.
func (s *TaskScheduler) Shutdown() {
	s.shuttingDown.Store(true)

	s.queue.Clear()
	atomic.StoreInt32(&s.metricQueued, 0)
	s.metrics.RecordQueueDepth(s.name, 0)
}

// IsShuttingDown reports whether Shutdown has been called.
func (s *TaskScheduler) IsShuttingDown() bool {
	return s.shuttingDown.Load()
}

// Metrics
func (s *TaskScheduler) WorkerCount() int         { return s.workerCount }
func (s *TaskScheduler) QueuedTaskCount() int     { return int(atomic.LoadInt32(&s.metricQueued)) }
func (s *TaskScheduler) ActiveTaskCount() int     { return int(atomic.LoadInt32(&s.metricActive)) }
func (s *TaskScheduler) RejectedTaskCount() int64 { return s.metricRejected.Load() }

func (s *TaskScheduler) OnTaskStart() {
	atomic.AddInt32(&s.metricActive, 1)
}

func (s *TaskScheduler) OnTaskEnd() {
	atomic.AddInt32(&s.metricActive, -1)
}

// GetPanicHandler returns the panic handler for this scheduler
func (s *TaskScheduler) GetPanicHandler() PanicHandler {
	return s.panicHandler
}

// GetMetrics returns the metrics collector for this scheduler
func (s *TaskScheduler) GetMetrics() Metrics {
	return s.metrics
}
