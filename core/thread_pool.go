package core

import "context"

// ThreadPool is the execution engine behind concurrent dispatch.
// Tasks posted through PostInternal run on one of WorkerCount goroutines,
// each of which reports its identity through CurrentWorkerID.
// PostInternal reports false when the pool refused the task.
type ThreadPool interface {
	PostInternal(task Task, name string) bool

	Start(ctx context.Context)
	Stop()

	ID() string
	IsRunning() bool

	WorkerCount() int
	QueuedTaskCount() int
	ActiveTaskCount() int
}
