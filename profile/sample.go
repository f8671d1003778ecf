package profile

import (
	"fmt"
	"time"

	"github.com/Swind/go-task-profiler/core"
)

// Sample is the immutable record one task leaves behind: which worker ran it
// and when, next to the session it belongs to.
type Sample struct {
	index        int
	workerID     core.WorkerID
	sessionStart time.Time
	taskStart    time.Time
	taskFinish   time.Time
}

// NewSample builds a Sample. index is the task's submission position within
// its session.
func NewSample(index int, workerID core.WorkerID, sessionStart, taskStart, taskFinish time.Time) Sample {
	return Sample{
		index:        index,
		workerID:     workerID,
		sessionStart: sessionStart,
		taskStart:    taskStart,
		taskFinish:   taskFinish,
	}
}

func (s Sample) Index() int              { return s.index }
func (s Sample) WorkerID() core.WorkerID { return s.workerID }
func (s Sample) SessionStart() time.Time { return s.sessionStart }
func (s Sample) TaskStart() time.Time    { return s.taskStart }
func (s Sample) TaskFinish() time.Time   { return s.taskFinish }
func (s Sample) Duration() time.Duration { return s.taskFinish.Sub(s.taskStart) }

// String renders the sample the way it is logged while a session runs,
// with times relative to the session start.
func (s Sample) String() string {
	return fmt.Sprintf("worker: %d, task: %d, start: %.3fs, finish: %.3fs",
		s.workerID,
		s.index,
		s.taskStart.Sub(s.sessionStart).Seconds(),
		s.taskFinish.Sub(s.sessionStart).Seconds())
}
