// Package taskqueue tracks pending and running task identifiers for the agent.
//
// Invariants:
// - Dequeue returns identifiers in the exact order they were enqueued.
// - An identifier is never both pending and running under correct usage.
// - The processing flag is advisory; the queue never gates on it.
//
// Usage:
//
//	q := taskqueue.New()
//	q.Enqueue("task-1")
//	id, ok := q.Dequeue()
//	if ok {
//		q.MarkRunning(id)
//		// ... execute ...
//		q.MarkComplete(id)
//	}
package taskqueue
