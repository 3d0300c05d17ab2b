// Package dispatch routes task lifecycle events to handlers owned by the agent.
//
// Invariants:
// - Handlers for a kind fire synchronously, in registration order.
// - A handler error stops subsequent handlers for that emission.
// - Emitting an unbound kind is a silent no-op.
// - Emit is reentrant-unsafe: handlers that emit recurse on the call stack.
//
// Usage:
//
//	d := dispatch.New(logger)
//	d.RegisterAgentHandlers(agent)
//	_ = d.Emit(dispatch.NewEvent(dispatch.KindTaskAdded, "task-1"))
package dispatch
