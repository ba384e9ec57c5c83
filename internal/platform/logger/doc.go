// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels and optional file rotation, and carries loggers and
// request IDs through context.Context.
package logger
