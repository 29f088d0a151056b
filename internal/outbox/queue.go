// Package outbox holds the outbound side of replication: the in-memory queue
// of pending writes, the HTTP client that pushes batches to the sync
// receiver, the bearer token source, and a connectivity monitor.
package outbox

import (
	"slices"
	"sync"

	"github.com/motoclube/roleplanner/internal/domain"
)

// Queue is a FIFO of pending sync operations, safe for concurrent use.
// Enqueue, TakeBatch and Requeue are atomic with respect to each other.
type Queue struct {
	mu    sync.Mutex
	items []domain.SyncOperation
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends op to the back of the queue.
func (q *Queue) Enqueue(op domain.SyncOperation) {
	q.mu.Lock()
	q.items = append(q.items, op)
	q.mu.Unlock()
}

// TakeBatch removes and returns up to n operations from the front. Operations
// enqueued after TakeBatch returns are never part of the returned batch.
func (q *Queue) TakeBatch(n int) []domain.SyncOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.items) {
		n = len(q.items)
	}
	batch := slices.Clone(q.items[:n])
	q.items = slices.Delete(q.items, 0, n)
	return batch
}

// Requeue puts a failed batch back at the front, in its original order, ahead
// of anything enqueued while the batch was in flight.
func (q *Queue) Requeue(batch []domain.SyncOperation) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(slices.Clone(batch), q.items...)
	q.mu.Unlock()
}

// Len returns the number of pending operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the pending operations, front first.
func (q *Queue) Snapshot() []domain.SyncOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}
