package taskprofiler

import "github.com/Swind/go-task-profiler/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the taskprofiler package for pool setup.

// Task is the unit of work (Closure)
type Task = core.Task

// WorkerID identifies the goroutine that executed a task
type WorkerID = core.WorkerID

// ThreadPool is re-exported for type compatibility
type ThreadPool = core.ThreadPool

// SingleThreadTaskRunner ensures all tasks execute on the same dedicated goroutine
type SingleThreadTaskRunner = core.SingleThreadTaskRunner

// TaskSchedulerConfig carries the pluggable panic, metrics and rejection handlers
type TaskSchedulerConfig = core.TaskSchedulerConfig

// NewSingleThreadTaskRunner creates a new SingleThreadTaskRunner with a dedicated goroutine.
func NewSingleThreadTaskRunner() *SingleThreadTaskRunner {
	return core.NewSingleThreadTaskRunner()
}

// CurrentWorkerID reports the worker executing the task that owns ctx
var CurrentWorkerID = core.CurrentWorkerID
