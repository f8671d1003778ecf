package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Swind/go-task-profiler/core"
)

var (
	// ErrInvalidRun is returned by Scheduler.Run for unusable parameters.
	ErrInvalidRun = errors.New("profile: invalid run")

	// ErrPoolNotRunning is returned when a concurrent run targets a stopped pool.
	ErrPoolNotRunning = errors.New("profile: thread pool is not running")

	// ErrSchedulerClosed is returned by Run after Close.
	ErrSchedulerClosed = errors.New("profile: scheduler is closed")
)

// RunSpec describes one batch of identical tasks.
type RunSpec struct {
	Strategy     Strategy
	TaskCount    int
	TaskDuration time.Duration

	// SessionStart is stamped into every sample. Zero means "now".
	SessionStart time.Time
}

// Validate checks the batch parameters.
func (r RunSpec) Validate() error {
	if !r.Strategy.Valid() {
		return fmt.Errorf("%w: unknown strategy %s", ErrInvalidRun, r.Strategy)
	}
	if r.TaskCount <= 0 {
		return fmt.Errorf("%w: task count must be positive, got %d", ErrInvalidRun, r.TaskCount)
	}
	if r.TaskDuration < 0 {
		return fmt.Errorf("%w: task duration must not be negative, got %v", ErrInvalidRun, r.TaskDuration)
	}
	return nil
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the logger sample lines and warnings go to.
func WithLogger(logger core.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the collector for task durations and skips.
func WithMetrics(metrics core.Metrics) SchedulerOption {
	return func(s *Scheduler) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithClock replaces time.Now for task timestamps.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler dispatches a batch of profiling tasks under a Strategy and
// reports, exactly once, when every task has either produced a sample or
// been skipped by cancellation.
//
// Serial runs go to a SingleThreadTaskRunner owned by the Scheduler and
// reused across runs, so a serial session always reports a single worker.
// Concurrent runs go to the shared ThreadPool.
type Scheduler struct {
	pool    core.ThreadPool
	logger  core.Logger
	metrics core.Metrics
	now     func() time.Time

	serialMu sync.Mutex
	serial   *core.SingleThreadTaskRunner
	closed   bool
}

// NewScheduler creates a Scheduler dispatching concurrent runs to pool.
// pool may be nil when only serial runs are needed.
func NewScheduler(pool core.ThreadPool, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		pool:    pool,
		logger:  core.NewNoOpLogger(),
		metrics: &core.NilMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanRun reports why a run with strategy would be refused, or nil.
func (s *Scheduler) CanRun(strategy Strategy) error {
	s.serialMu.Lock()
	closed := s.closed
	s.serialMu.Unlock()
	if closed {
		return ErrSchedulerClosed
	}

	switch strategy {
	case StrategySerial:
		return nil
	case StrategyConcurrent:
		if s.pool == nil || !s.pool.IsRunning() {
			return ErrPoolNotRunning
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown strategy %s", ErrInvalidRun, strategy)
	}
}

// Run dispatches batch.TaskCount tasks and returns without waiting for them.
//
// ctx is the run's cooperative cancellation flag: every task checks it before
// starting work and again before logging its sample. onComplete runs on its
// own goroutine after the last task has finished or been skipped; it is never
// called when Run returns an error.
func (s *Scheduler) Run(ctx context.Context, batch RunSpec, store *SampleStore, onComplete func()) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	if store == nil || onComplete == nil {
		return fmt.Errorf("%w: store and completion callback are required", ErrInvalidRun)
	}
	if err := s.CanRun(batch.Strategy); err != nil {
		return err
	}
	if batch.SessionStart.IsZero() {
		batch.SessionStart = s.now()
	}

	var post func(name string, task core.Task) bool
	var runnerName string
	switch batch.Strategy {
	case StrategySerial:
		runner, err := s.serialRunner()
		if err != nil {
			return err
		}
		post = runner.TryPostTask
		runnerName = runner.Name()
	case StrategyConcurrent:
		post = func(name string, task core.Task) bool {
			return s.pool.PostInternal(task, name)
		}
		runnerName = s.pool.ID()
	}

	var wg sync.WaitGroup
	wg.Add(batch.TaskCount)
	for i := range batch.TaskCount {
		task := s.newTask(ctx, batch, i, runnerName, store, wg.Done)
		if !post(fmt.Sprintf("%s-task-%d", batch.Strategy, i), task) {
			// Rejected tasks never run; account for them here so the
			// completion callback still fires.
			s.metrics.RecordTaskSkipped(runnerName)
			wg.Done()
		}
	}

	go func() {
		wg.Wait()
		onComplete()
	}()
	return nil
}

// newTask builds the body of task index.
func (s *Scheduler) newTask(ctx context.Context, batch RunSpec, index int, runnerName string, store *SampleStore, done func()) core.Task {
	return func(taskCtx context.Context) {
		defer done()

		if ctx.Err() != nil {
			s.metrics.RecordTaskSkipped(runnerName)
			return
		}

		workerID, ok := core.CurrentWorkerID(taskCtx)
		if !ok {
			s.logger.Warn("task ran without a worker identity",
				core.F("runner", runnerName),
				core.F("task", index))
		}

		start := s.now()
		simulateWork(ctx, batch.TaskDuration)
		finish := s.now()

		// Recorded even if cancellation arrived during the work; only the
		// log line below is suppressed.
		sample := NewSample(index, workerID, batch.SessionStart, start, finish)
		store.Append(sample)
		s.metrics.RecordTaskDuration(runnerName, finish.Sub(start))

		if ctx.Err() != nil {
			return
		}
		s.logger.Debug(sample.String(), core.F("runner", runnerName))
	}
}

// simulateWork blocks for d or until ctx is cancelled.
func simulateWork(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (s *Scheduler) serialRunner() (*core.SingleThreadTaskRunner, error) {
	s.serialMu.Lock()
	defer s.serialMu.Unlock()

	if s.closed {
		return nil, ErrSchedulerClosed
	}
	if s.serial == nil {
		s.serial = core.NewSingleThreadTaskRunnerWithConfig(&core.TaskSchedulerConfig{
			PanicHandler: &core.DefaultPanicHandler{Logger: s.logger},
			Metrics:      s.metrics,
		})
		s.serial.SetName("serial")
	}
	return s.serial, nil
}

// SerialWorkerID returns the worker identity serial runs report, creating
// the serial runner if needed.
func (s *Scheduler) SerialWorkerID() (core.WorkerID, error) {
	runner, err := s.serialRunner()
	if err != nil {
		return core.NoWorker, err
	}
	return runner.WorkerID(), nil
}

// Pending returns the number of dispatched tasks still waiting for a worker.
func (s *Scheduler) Pending() int {
	s.serialMu.Lock()
	serial := s.serial
	s.serialMu.Unlock()

	n := 0
	if serial != nil {
		n += serial.PendingTaskCount()
	}
	if s.pool != nil {
		n += s.pool.QueuedTaskCount()
	}
	return n
}

// Close shuts the serial runner down. Tasks already queued on it still run.
func (s *Scheduler) Close() {
	s.serialMu.Lock()
	defer s.serialMu.Unlock()

	s.closed = true
	if s.serial != nil {
		s.serial.Shutdown()
	}
}
