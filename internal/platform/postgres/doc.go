// Package postgres provides PostgreSQL implementations of the storage
// interfaces defined in internal/store: courses with their outlines, chapter
// contents, expansion checkpoints and background task records.
//
// The schema is managed with goose. Migrations are embedded in the binary and
// applied with Migrate.
package postgres
