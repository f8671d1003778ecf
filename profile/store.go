package profile

import (
	"sync"

	"github.com/Swind/go-task-profiler/core"
)

// SampleStore accumulates the samples of one session.
//
// Tasks only ever call Append. Reset and Snapshot belong to the session
// owner, which calls Reset before dispatch and Snapshot after every task has
// finished, so neither races with a writer.
type SampleStore struct {
	mu          sync.Mutex
	samples     []Sample
	snapshotted bool
	lateAppends int

	logger core.Logger
}

// NewSampleStore creates a store with room for capacity samples.
// A nil logger discards invariant warnings.
func NewSampleStore(capacity int, logger core.Logger) *SampleStore {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	return &SampleStore{
		samples: make([]Sample, 0, max(capacity, 0)),
		logger:  logger,
	}
}

// Append adds a sample. Safe for any number of concurrent callers.
func (s *SampleStore) Append(sample Sample) {
	s.mu.Lock()
	late := s.snapshotted
	if late {
		s.lateAppends++
	}
	s.samples = append(s.samples, sample)
	s.mu.Unlock()

	if late {
		// The sample is kept: nothing appended is ever dropped.
		invariantViolation(s.logger, "append after snapshot",
			core.F("worker", sample.WorkerID()),
			core.F("task", sample.Index()))
	}
}

// Reset drops every sample and re-arms the store for a new session.
// Callers must ensure no task is still appending.
func (s *SampleStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.samples)
	s.samples = s.samples[:0]
	s.snapshotted = false
	s.lateAppends = 0
}

// Snapshot returns a copy of everything collected so far.
func (s *SampleStore) Snapshot() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshotted = true
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Len returns the number of samples collected so far.
func (s *SampleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

// LateAppends counts appends that arrived after the last Snapshot.
func (s *SampleStore) LateAppends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lateAppends
}
