package store

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"golang.org/x/crypto/blake2b"
)

// Checkpoint records the sections of a chapter that have already been
// expanded. Sections holds expanded sections in order, so len(Sections) is
// the index of the next section to expand.
type Checkpoint struct {
	CourseID  string             `json:"course_id"`
	ChapterID string             `json:"chapter_id"`
	Sections  []markdown.Section `json:"sections"`

	// SourceDigest fingerprints the chapter content the sections were
	// expanded from. A checkpoint whose digest differs from the current
	// content is stale.
	SourceDigest string    `json:"source_digest"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CheckpointKey identifies a checkpoint.
type CheckpointKey struct {
	CourseID  string `json:"course_id"`
	ChapterID string `json:"chapter_id"`
}

// Key returns the checkpoint's key.
func (c *Checkpoint) Key() CheckpointKey {
	return CheckpointKey{CourseID: c.CourseID, ChapterID: c.ChapterID}
}

// Matches reports whether the checkpoint was taken from content.
// Checkpoints without a digest match anything.
func (c *Checkpoint) Matches(content string) bool {
	return c.SourceDigest == "" || c.SourceDigest == Digest(content)
}

// Digest returns the hex BLAKE2b-256 fingerprint of chapter content.
func Digest(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// CheckpointStore persists expansion checkpoints keyed by course and chapter.
type CheckpointStore interface {
	// Load returns the checkpoint for a chapter.
	// Returns ErrCheckpointNotFound if none exists.
	Load(ctx context.Context, courseID, chapterID string) (*Checkpoint, error)

	// Save creates or replaces a checkpoint.
	Save(ctx context.Context, cp *Checkpoint) error

	// Delete removes a checkpoint. Deleting a missing checkpoint is not an error.
	Delete(ctx context.Context, courseID, chapterID string) error

	// List returns the keys of every stored checkpoint.
	List(ctx context.Context) ([]CheckpointKey, error)
}
