// Package task runs long operations, such as course expansion, in the
// background so that they don't block HTTP request handling. Tasks are
// persisted through a TaskStore before they are queued; on startup the Runner
// rebuilds unfinished tasks with the Factory registered for their type and
// queues them again.
package task
