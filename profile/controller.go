package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	taskprofiler "github.com/Swind/go-task-profiler"
	"github.com/Swind/go-task-profiler/core"
)

var (
	// ErrControllerClosed is returned once Close has been called.
	ErrControllerClosed = errors.New("profile: controller is closed")

	// ErrNoSession is returned by WaitIdle when no session has run yet.
	ErrNoSession = errors.New("profile: no session has run")

	// ErrSessionRunning is returned by Run while another session is in flight.
	ErrSessionRunning = errors.New("profile: a session is already running")
)

// State is the lifecycle position of a Controller. A finished session,
// completed or cancelled, leaves the controller Idle; completion is visible
// through LatestResult.
type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// runHandle tracks one dispatched session.
type runHandle struct {
	info   SessionInfo
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// result is written before done is closed.
	result SessionResult
}

// Controller drives one profiling session at a time.
//
// A session resets the store, dispatches TaskCount tasks through the
// Scheduler, and once every task has finished or been skipped aggregates the
// samples into a SessionResult. Completed sessions are published through
// Observer.SessionCompleted and LatestResult; cancelled sessions hand their
// partial result to Observer.SessionCancelled only.
type Controller struct {
	cfg        Config
	pool       core.ThreadPool
	ownsPool   bool
	scheduler  *Scheduler
	store      *SampleStore
	aggregator *Aggregator
	history    *sessionHistory

	mu        sync.Mutex
	state     State
	closed    bool
	current   *runHandle
	last      *runHandle
	latest    SessionResult
	hasLatest bool
	sessions  int64
	lastName  string
	lastAt    time.Time
}

// NewController creates a Controller that dispatches concurrent sessions to
// pool. The caller keeps ownership of pool and must keep it running.
func NewController(pool core.ThreadPool, cfg Config) (*Controller, error) {
	if pool == nil {
		return nil, errors.New("profile: thread pool is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	return &Controller{
		cfg:  cfg,
		pool: pool,
		scheduler: NewScheduler(pool,
			WithLogger(cfg.Logger),
			WithMetrics(cfg.Metrics),
			WithClock(cfg.Clock)),
		store:      NewSampleStore(cfg.TaskCount, cfg.Logger),
		aggregator: NewAggregator(cfg.Logger),
		history:    newSessionHistory(cfg.HistorySize),
		state:      StateIdle,
	}, nil
}

// NewStandaloneController creates a Controller with its own pool of
// cfg.Workers goroutines. Close stops the pool.
func NewStandaloneController(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	pool := taskprofiler.NewGoroutineThreadPoolWithConfig("profiler", cfg.Workers, &core.TaskSchedulerConfig{
		PanicHandler:        &core.DefaultPanicHandler{Logger: cfg.Logger},
		Metrics:             cfg.Metrics,
		RejectedTaskHandler: &core.DefaultRejectedTaskHandler{Logger: cfg.Logger},
	})
	pool.Start(context.Background())

	c, err := NewController(pool, cfg)
	if err != nil {
		pool.Stop()
		return nil, err
	}
	c.ownsPool = true
	return c, nil
}

// Pool returns the pool concurrent sessions run on.
func (c *Controller) Pool() core.ThreadPool {
	return c.pool
}

// StartSerial starts a session on the single serial worker.
// It reports false when a session is already running or the start failed.
func (c *Controller) StartSerial() bool {
	_, err := c.Start(StrategySerial)
	return err == nil
}

// StartConcurrent starts a session on the pool.
// It reports false when a session is already running or the start failed.
func (c *Controller) StartConcurrent() bool {
	_, err := c.Start(StrategyConcurrent)
	return err == nil
}

// Start starts a session with strategy without waiting for it and returns
// its description. ErrSessionRunning means another session is in flight.
func (c *Controller) Start(strategy Strategy) (SessionInfo, error) {
	h, err := c.start(strategy)
	if err != nil {
		return SessionInfo{}, err
	}
	return h.info, nil
}

// Run starts a session with strategy and waits for it to finish. If ctx ends
// first the session is cancelled and ctx's error returned; the session keeps
// draining in the background.
func (c *Controller) Run(ctx context.Context, strategy Strategy) (SessionResult, error) {
	h, err := c.start(strategy)
	if err != nil {
		return SessionResult{}, err
	}

	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		h.cancel()
		return SessionResult{}, ctx.Err()
	}
}

// start dispatches a session and returns its handle.
func (c *Controller) start(strategy Strategy) (*runHandle, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrControllerClosed
	}
	if c.state == StateRunning {
		c.mu.Unlock()
		return nil, ErrSessionRunning
	}
	if err := c.scheduler.CanRun(strategy); err != nil {
		c.mu.Unlock()
		c.cfg.Logger.Error("session not started",
			core.F("strategy", strategy),
			core.F("error", err))
		return nil, err
	}

	prev := c.state
	c.state = StateRunning
	c.store.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	h := &runHandle{
		info: SessionInfo{
			ID:           uuid.NewString(),
			Strategy:     strategy,
			TaskCount:    c.cfg.TaskCount,
			TaskDuration: c.cfg.TaskDuration,
			StartedAt:    c.cfg.Clock(),
		},
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.current = h
	c.last = h
	c.mu.Unlock()

	c.cfg.Logger.Info("session started",
		core.F("session", h.info.ID),
		core.F("strategy", strategy),
		core.F("tasks", h.info.TaskCount),
		core.F("duration", h.info.TaskDuration))
	c.cfg.Observer.SessionStarted(h.info)

	err := c.scheduler.Run(ctx, RunSpec{
		Strategy:     strategy,
		TaskCount:    h.info.TaskCount,
		TaskDuration: h.info.TaskDuration,
		SessionStart: h.info.StartedAt,
	}, c.store, func() { c.finish(h) })
	if err != nil {
		cancel()
		c.mu.Lock()
		c.state = prev
		c.current = nil
		c.mu.Unlock()
		close(h.done)

		c.cfg.Logger.Error("session rejected by scheduler",
			core.F("session", h.info.ID),
			core.F("strategy", strategy),
			core.F("error", err))
		return nil, err
	}
	return h, nil
}

// Cancel asks the running session to stop. Tasks that have not started are
// skipped and tasks mid-work return early. No-op when nothing is running.
func (c *Controller) Cancel() {
	c.mu.Lock()
	h := c.current
	c.mu.Unlock()

	if h != nil {
		h.cancel()
	}
}

// finish runs on the scheduler's completion goroutine.
func (c *Controller) finish(h *runHandle) {
	cancelled := h.ctx.Err() != nil
	h.cancel()

	result := c.aggregator.Aggregate(c.store.Snapshot())
	result.ID = h.info.ID
	result.Strategy = h.info.Strategy
	result.Cancelled = cancelled
	elapsed := c.cfg.Clock().Sub(h.info.StartedAt)
	h.result = result

	outcome := "completed"
	c.mu.Lock()
	c.state = StateIdle
	if cancelled {
		outcome = "cancelled"
	} else {
		c.latest = result
		c.hasLatest = true
	}
	c.current = nil
	c.sessions++
	c.lastName = h.info.Strategy.String()
	c.lastAt = c.cfg.Clock()
	c.mu.Unlock()

	c.history.Add(SessionRecord{
		ID:         result.ID,
		Strategy:   result.Strategy,
		Cancelled:  cancelled,
		Tasks:      result.TaskCount(),
		Workers:    result.WorkerCount(),
		StartedAt:  h.info.StartedAt,
		FinishedAt: h.info.StartedAt.Add(elapsed),
		Elapsed:    elapsed,
	})

	c.cfg.Logger.Info("session "+outcome,
		core.F("session", result.ID),
		core.F("strategy", result.Strategy),
		core.F("tasks", result.TaskCount()),
		core.F("workers", result.WorkerCount()),
		core.F("elapsed", elapsed))

	if cancelled {
		c.cfg.Observer.SessionCancelled(result)
	} else {
		c.cfg.Observer.SessionCompleted(result)
	}
	c.cfg.Metrics.RecordSession(result.Strategy.String(), outcome, result.TaskCount(), result.WorkerCount(), elapsed)

	close(h.done)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LatestResult returns the result of the last completed session.
// Cancelled sessions never replace it.
func (c *Controller) LatestResult() (SessionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.hasLatest
}

// WaitIdle blocks until the current session, or the last one if none is
// running, has finished, and returns its result. Cancelled sessions return
// their partial result with Cancelled set.
//
// There is no internal timeout: a stalled task delays completion
// indefinitely, so callers bound the wait with ctx.
func (c *Controller) WaitIdle(ctx context.Context) (SessionResult, error) {
	c.mu.Lock()
	h := c.current
	if h == nil {
		h = c.last
	}
	c.mu.Unlock()

	if h == nil {
		return SessionResult{}, ErrNoSession
	}

	select {
	case <-h.done:
		if h.result.ID == "" {
			// Rejected before dispatch.
			return SessionResult{}, ErrNoSession
		}
		return h.result, nil
	case <-ctx.Done():
		return SessionResult{}, ctx.Err()
	}
}

// Stats returns observability data for the controller's serial worker and
// session history.
func (c *Controller) Stats() core.RunnerStats {
	workerID, _ := c.scheduler.SerialWorkerID()

	c.mu.Lock()
	defer c.mu.Unlock()

	running := 0
	if c.state == StateRunning {
		running = 1
	}
	return core.RunnerStats{
		Name:         "controller",
		Type:         "session_controller",
		WorkerID:     workerID,
		Pending:      c.scheduler.Pending(),
		Running:      running,
		Closed:       c.closed,
		LastTaskName: c.lastName,
		LastTaskAt:   c.lastAt,
	}
}

// History returns up to limit finished sessions, newest first.
// limit <= 0 returns everything retained.
func (c *Controller) History(limit int) []SessionRecord {
	return c.history.Recent(limit)
}

// SessionCount returns the number of sessions that have finished, cancelled
// ones included.
func (c *Controller) SessionCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions
}

// Close cancels any running session, waits for it to drain, then shuts the
// serial worker down and stops the pool if the controller created it.
// Close is safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	h := c.current
	c.mu.Unlock()

	if h != nil {
		h.cancel()
		<-h.done
	}

	c.scheduler.Close()
	if c.ownsPool {
		c.pool.Stop()
	}
	return nil
}
