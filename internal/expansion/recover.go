package expansion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/google/uuid"
)

// Recover rebuilds job state for courses whose expansion was interrupted by
// a restart. Each course with surviving checkpoints gets a parziale job whose
// resume point is the first outline chapter with a checkpoint. Courses that
// already have a job are left alone, and checkpoints of deleted courses are
// removed. It returns the number of jobs recovered.
func (c *Controller) Recover(ctx context.Context) (int, error) {
	keys, err := c.checkpoints.List(ctx)
	if err != nil {
		return 0, err
	}

	var order []string
	byCourse := make(map[string]map[string]bool)
	for _, k := range keys {
		if byCourse[k.CourseID] == nil {
			byCourse[k.CourseID] = make(map[string]bool)
			order = append(order, k.CourseID)
		}
		byCourse[k.CourseID][k.ChapterID] = true
	}

	recovered := 0
	for _, rawID := range order {
		chapters := byCourse[rawID]
		courseID, err := uuid.Parse(rawID)
		if err != nil {
			c.logger.WarnContext(ctx, "ignoring checkpoint with invalid course ID", slog.String("course_id", rawID))
			continue
		}

		ok, err := c.recoverCourse(ctx, courseID, chapters)
		if err != nil {
			return recovered, err
		}
		if ok {
			recovered++
		}
	}
	if recovered > 0 {
		c.logger.InfoContext(ctx, "recovered interrupted expansion jobs", slog.Int("jobs", recovered))
	}
	return recovered, nil
}

func (c *Controller) recoverCourse(ctx context.Context, courseID uuid.UUID, chapters map[string]bool) (bool, error) {
	course, err := c.courses.GetCourse(ctx, courseID)
	if errors.Is(err, store.ErrCourseNotFound) {
		for chapterID := range chapters {
			_ = c.checkpoints.Delete(ctx, courseID.String(), chapterID)
		}
		c.logger.InfoContext(ctx, "removed checkpoints of deleted course", slog.String("course_id", courseID.String()))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if course.Outline == nil {
		return false, nil
	}

	now := time.Now().UTC()
	s := &Summary{
		JobID:         uuid.New(),
		CourseID:      courseID,
		State:         StatePartial,
		Success:       true,
		TotalChapters: len(course.Outline.Chapters),
		Chapters:      make([]ChapterDetail, 0, len(course.Outline.Chapters)),
		Message:       msgRecovered,
		StartedAt:     now,
		UpdatedAt:     now,
	}

	for _, ch := range course.Outline.Chapters {
		d := ChapterDetail{ID: ch.ID, Title: ch.Title}
		if cc, err := c.courses.GetChapterContent(ctx, courseID, ch.ID); err == nil && cc.Expanded() {
			d.Expanded = true
			d.OriginalLength = cc.OriginalLength
			d.ExpandedLength = cc.Length()
			d.Ratio = ratio(cc.OriginalLength, cc.Length())
			s.ExpandedChapters++
		}

		if s.ResumePoint == nil && chapters[ch.ID] {
			cp, err := c.checkpoints.Load(ctx, courseID.String(), ch.ID)
			if err != nil && !errors.Is(err, store.ErrCheckpointNotFound) {
				return false, err
			}
			section := 0
			if cp != nil {
				section = len(cp.Sections)
			}
			s.ResumePoint = &ResumePoint{ChapterID: ch.ID, Section: section}
			d.CurrentSection = section
			d.Message = msgRecovered
		}
		s.Chapters = append(s.Chapters, d)
	}

	if s.ResumePoint == nil {
		return false, nil
	}
	return c.jobs.Seed(s), nil
}
