// Package processor runs research jobs in the background: a poll loop feeds
// pending job IDs into an in-memory queue, and workers drain it.
package processor

import "sync"

// Queue is an unbounded in-memory FIFO of job IDs, safe for any number of
// producers and consumers. It exists so an HTTP submission can hand a job to
// a worker immediately instead of waiting for the next poll tick; the queue
// does not survive a restart, the poll loop re-discovers pending jobs from
// the store.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

// NewQueue returns an empty open queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a job ID. It reports false once the queue is closed.
func (q *Queue) Enqueue(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, jobID)
	q.cond.Signal()
	return true
}

// Dequeue blocks until an item is available or the queue is closed and
// drained. The second return is false only in the latter case.
func (q *Queue) Dequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.closed {
			return "", false
		}
		q.cond.Wait()
	}
	id := q.items[0]
	q.items = q.items[1:]
	return id, true
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting new items and wakes every blocked Dequeue. Items
// already queued are still handed out.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}
