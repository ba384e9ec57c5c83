// Package store defines the persistence contracts used by course generation
// and expansion. Courses, outlines and chapter contents live behind
// CourseStore; partially expanded chapters live behind CheckpointStore.
// Implementations are in internal/platform/postgres, internal/platform/redis
// and internal/platform/filestore.
package store
