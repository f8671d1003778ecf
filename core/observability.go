package core

import "time"

// RunnerStats represents runtime observability state for a task runner or
// session controller.
type RunnerStats struct {
	Name         string
	Type         string
	WorkerID     WorkerID
	Pending      int
	Running      int
	Rejected     int64
	Closed       bool
	LastTaskName string
	LastTaskAt   time.Time
}

// PoolStats represents runtime observability state for a thread pool.
type PoolStats struct {
	ID      string `json:"id"`
	Workers int    `json:"workers"`
	Queued  int    `json:"queued"`
	Active  int    `json:"active"`
	Running bool   `json:"running"`
}
