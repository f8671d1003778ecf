package core

import (
	"context"
	"strconv"
	"sync/atomic"
)

// WorkerID identifies the goroutine that executed a task.
// IDs are unique within the process and never reused, so a worker keeps
// the same ID for as long as it lives.
type WorkerID int

// NoWorker is returned by CurrentWorkerID when the context carries no identity.
const NoWorker WorkerID = 0

var workerIDSeq atomic.Int64

// NextWorkerID allocates a fresh worker identity. The first ID is 1.
func NextWorkerID() WorkerID {
	return WorkerID(workerIDSeq.Add(1))
}

func (id WorkerID) String() string {
	return strconv.Itoa(int(id))
}

type workerIDKeyType struct{}

var workerIDKey workerIDKeyType

// WithWorkerID returns a context that reports id as the executing worker.
func WithWorkerID(ctx context.Context, id WorkerID) context.Context {
	return context.WithValue(ctx, workerIDKey, id)
}

// CurrentWorkerID reports the worker executing the task that owns ctx.
func CurrentWorkerID(ctx context.Context) (WorkerID, bool) {
	if v, ok := ctx.Value(workerIDKey).(WorkerID); ok {
		return v, true
	}
	return NoWorker, false
}
