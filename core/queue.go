package core

import "sync"

// reclaimThreshold is how many consumed slots Pop tolerates at the front of
// the buffer before it moves the live tail down.
const reclaimThreshold = 256

// TaskItem is a queued task plus the display name it was posted with.
type TaskItem struct {
	Task Task
	Name string
}

// FIFOTaskQueue is an unbounded, mutex-guarded first-in first-out queue.
//
// Pop advances a head index instead of reslicing, so a burst of posts followed
// by a drain reuses one buffer. The consumed prefix is reclaimed once it is
// past reclaimThreshold and longer than the live tail.
type FIFOTaskQueue struct {
	mu    sync.Mutex
	items []TaskItem
	head  int
}

func NewFIFOTaskQueue() *FIFOTaskQueue {
	return &FIFOTaskQueue{}
}

func (q *FIFOTaskQueue) Push(t Task, name string) {
	q.mu.Lock()
	q.items = append(q.items, TaskItem{Task: t, Name: name})
	q.mu.Unlock()
}

// Pop removes the oldest item. It reports false when the queue is empty.
func (q *FIFOTaskQueue) Pop() (TaskItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.items) {
		return TaskItem{}, false
	}

	item := q.items[q.head]
	q.items[q.head] = TaskItem{}
	q.head++

	switch live := len(q.items) - q.head; {
	case live == 0:
		q.items = q.items[:0]
		q.head = 0
	case q.head > reclaimThreshold && q.head > live:
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return item, true
}

func (q *FIFOTaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Clear drops every queued task and releases the buffer.
func (q *FIFOTaskQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.head = 0
}
