// Package service contains the application use cases: course lifecycle,
// outline and chapter generation, and the entry points of expansion jobs.
//
// Services coordinate the stores (internal/store), the generation client
// (internal/generation) and the expansion controller (internal/expansion).
// They depend on interfaces only; the API layer maps the sentinel errors they
// return to HTTP status codes.
package service
