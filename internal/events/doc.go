// Package events carries course lifecycle events between components.
//
// The expansion controller reports progress (sections and chapters expanded,
// jobs finished) and the service layer requests background expansion runs by
// emitting events. Handlers registered on an EventEmitter decide what to do
// with them: log them, or turn an expansion request into a queued task.
//
// The primary components are:
// - Event: a typed, JSON-payload event about one course
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
// - InMemoryEventEmitter: synchronous fan-out to registered handlers
package events
