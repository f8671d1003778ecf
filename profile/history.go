package profile

import (
	"sync"
	"time"
)

const defaultHistoryCapacity = 32

// SessionRecord summarizes one finished session.
type SessionRecord struct {
	ID         string        `json:"id" yaml:"id" toml:"id"`
	Strategy   Strategy      `json:"strategy" yaml:"strategy" toml:"strategy"`
	Cancelled  bool          `json:"cancelled" yaml:"cancelled" toml:"cancelled"`
	Tasks      int           `json:"tasks" yaml:"tasks" toml:"tasks"`
	Workers    int           `json:"workers" yaml:"workers" toml:"workers"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at" toml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at" toml:"finished_at"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed" toml:"elapsed"`
}

// sessionHistory is a fixed-size ring of the most recent sessions.
type sessionHistory struct {
	mu    sync.Mutex
	items []SessionRecord
	head  int
	count int
}

func newSessionHistory(capacity int) *sessionHistory {
	if capacity < 1 {
		capacity = defaultHistoryCapacity
	}
	return &sessionHistory{items: make([]SessionRecord, capacity)}
}

func (h *sessionHistory) Add(record SessionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first. limit <= 0 means all.
func (h *sessionHistory) Recent(limit int) []SessionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]SessionRecord, 0, limit)
	for i := range limit {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

func (h *sessionHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}
