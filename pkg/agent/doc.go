// Package agent owns the drain loop connecting the task queue, event
// dispatcher, tool registry and response cache.
//
// Invariants:
// - A single drain loop runs at a time, guarded by the queue's
//   processing flag.
// - Tool responses are memoized by request fingerprint; identical
//   requests are served from cache.
// - Cancellation is bookkeeping only; an in-flight tool call is never
//   aborted.
//
// Usage:
//
//	a, _ := agent.New(agent.Config{
//		Queue:      queue,
//		Dispatcher: dispatcher,
//		Tools:      registry,
//		Cache:      cache,
//		Logger:     logger,
//	})
//	taskID, _ := a.Submit("market_summary", `{"zip":"94110"}`)
//	_ = taskID
package agent
