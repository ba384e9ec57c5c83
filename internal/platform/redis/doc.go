// Package redis implements store.CheckpointStore on Redis. Each checkpoint is
// a JSON document under coursegen:checkpoint:{course}:{chapter}.
package redis
