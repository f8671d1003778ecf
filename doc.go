// Package taskprofiler records how a batch of identical tasks is spread over
// workers when dispatched serially and when dispatched to a goroutine pool.
//
// The library is built on a Chromium-inspired task runner core: tasks are
// posted to runners (virtual threads) instead of spawning goroutines
// directly, and every worker carries a stable core.WorkerID that tasks can
// read from their context.
//
// # Quick Start
//
// Create a controller that owns its own worker pool:
//
//	ctrl, err := profile.NewStandaloneController(profile.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer ctrl.Close()
//
//	ctrl.StartConcurrent()
//	result, err := ctrl.WaitIdle(ctx)
//
// # Key Concepts
//
// GoroutineThreadPool: The execution engine behind the Concurrent strategy.
// A fixed set of worker goroutines pull tasks from a FIFO TaskScheduler.
//
// SingleThreadTaskRunner: One dedicated goroutine executing tasks strictly in
// submission order. It backs the Serial strategy, so every sample of a serial
// session reports the same worker.
//
// profile.Controller: Drives one session at a time (reset, dispatch, wait,
// aggregate, publish) and notifies a profile.Observer.
//
// profile.SessionResult: Per-worker timelines of session-relative intervals,
// in seconds, sorted by worker and by start time.
//
// # Sharing a pool
//
//	pool := taskprofiler.NewGoroutineThreadPool("profiler", 64)
//	pool.Start(context.Background())
//	defer pool.Stop()
//
//	ctrl, err := profile.NewController(pool, profile.DefaultConfig())
package taskprofiler
