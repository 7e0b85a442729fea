// Package queue provides the hand-off point between notification producers
// and the single consumer worker.
//
// The contract mirrors a classic task queue: Enqueue never blocks and never
// fails, Dequeue waits with a bounded timeout so the consumer can recheck
// its cancellation signal, and Drain blocks until every item handed out has
// been marked processed via TaskDone — including the shutdown sentinel and
// items enqueued after Drain was called.
package queue

import (
	"sync"
	"time"

	"github.com/homecast/cast-notifier/internal/domain"
)

// Queue is an unbounded FIFO of notification requests. Strict enqueue order
// is preserved; there is no priority tiering, so a burst of requests is
// simply played back in the order it arrived.
type Queue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []domain.NotificationRequest

	// unfinished counts every enqueued item until its TaskDone call.
	// Drain waits for it to reach zero.
	unfinished int
}

func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a request. It never blocks and never fails; capacity is
// bounded only by memory.
func (q *Queue) Enqueue(req domain.NotificationRequest) {
	q.mu.Lock()
	q.items = append(q.items, req)
	q.unfinished++
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Dequeue removes and returns the oldest request, waiting up to timeout for
// one to arrive. Returns (zero, false) on timeout so the caller can recheck
// cancellation and come back.
func (q *Queue) Dequeue(timeout time.Duration) (domain.NotificationRequest, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return domain.NotificationRequest{}, false
		}
		// sync.Cond has no timed wait; a one-shot timer broadcasting the
		// same condition bounds the wait without busy polling.
		t := time.AfterFunc(remaining, q.cond.Broadcast)
		q.cond.Wait()
		t.Stop()
	}

	req := q.items[0]
	q.items = q.items[1:]
	return req, true
}

// TaskDone marks one previously dequeued item as processed. Every dequeued
// item, including the sentinel and items that fail processing, must be
// marked exactly once or Drain never returns.
func (q *Queue) TaskDone() {
	q.mu.Lock()
	if q.unfinished > 0 {
		q.unfinished--
	}
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Drain blocks until every enqueued item has been marked processed, or the
// timeout expires. Items enqueued after the call still count. Reports
// whether the queue fully drained within the bound.
func (q *Queue) Drain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.unfinished > 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		t := time.AfterFunc(remaining, q.cond.Broadcast)
		q.cond.Wait()
		t.Stop()
	}
	return true
}

// Len returns the number of requests waiting to be dequeued.
// Used by the metrics handler for the queue-depth snapshot.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
