package taskqueue

import (
	"sync"

	"github.com/nestquant/nestquant/internal/observability"
	"github.com/rs/zerolog/log"
)

// Queue is the admission queue for agent tasks. It is pure bookkeeping:
// the caller executes tasks after dequeuing them and reports completion
// through MarkRunning/MarkComplete.
type Queue struct {
	mu         sync.Mutex
	pending    []string
	running    map[string]bool
	processing bool
}

// New creates an empty task queue.
func New() *Queue {
	observability.EnsureRegistered()

	return &Queue{
		pending: make([]string, 0),
		running: make(map[string]bool),
	}
}

// Enqueue appends id to the end of the pending sequence. Duplicate
// identifiers are allowed and dequeue as separate entries.
func (q *Queue) Enqueue(id string) {
	q.mu.Lock()
	q.pending = append(q.pending, id)
	depth := len(q.pending)
	q.mu.Unlock()

	log.Debug().Str("taskId", id).Int("pending", depth).Msg("Task enqueued")
	observability.RecordTaskEnqueue(depth)
}

// Dequeue removes and returns the identifier at the head of the pending
// sequence. It never blocks; ok is false when the queue is empty.
func (q *Queue) Dequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return "", false
	}

	id := q.pending[0]
	q.pending = q.pending[1:]
	observability.SetQueuePending(len(q.pending))
	return id, true
}

// MarkRunning adds id to the running set. Adding an already-present id
// is a no-op.
func (q *Queue) MarkRunning(id string) {
	q.mu.Lock()
	q.running[id] = true
	count := len(q.running)
	q.mu.Unlock()

	observability.SetQueueRunning(count)
}

// MarkComplete removes id from the running set. Removing an absent id
// is a no-op.
func (q *Queue) MarkComplete(id string) {
	q.mu.Lock()
	delete(q.running, id)
	count := len(q.running)
	q.mu.Unlock()

	observability.SetQueueRunning(count)
}

// Processing reports the advisory drain-loop flag.
func (q *Queue) Processing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing
}

// SetProcessing sets the advisory drain-loop flag. The owner uses it to
// avoid starting two concurrent drain loops; the queue itself does not
// enforce anything with it.
func (q *Queue) SetProcessing(processing bool) {
	q.mu.Lock()
	q.processing = processing
	q.mu.Unlock()
}

// PendingIDs returns a copy of the pending sequence in FIFO order.
func (q *Queue) PendingIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]string, len(q.pending))
	copy(ids, q.pending)
	return ids
}

// RunningIDs returns a copy of the running set.
func (q *Queue) RunningIDs() map[string]bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make(map[string]bool, len(q.running))
	for id := range q.running {
		ids[id] = true
	}
	return ids
}

// Stats returns pending and running counts for monitoring.
func (q *Queue) Stats() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return map[string]int{
		"pending": len(q.pending),
		"running": len(q.running),
	}
}
