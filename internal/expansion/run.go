package expansion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/events"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"github.com/gnicolai/AI-Courses-Generator/internal/redact"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/google/uuid"
)

type stopReason int

const (
	proceed stopReason = iota
	stopCanceled
	stopError
	stopPersistence
	stopShutdown
)

// outcome is how a chapter, or the whole loop, ended.
type outcome struct {
	reason  stopReason
	resume  *ResumePoint
	chapter int
}

// errJobReplaced rejects updates from a loop whose job is no longer the
// course's current one.
var errJobReplaced = errors.New("expansion job was replaced")

// Run drives the course's active job until it completes, stops on an error,
// or is canceled. The job must have been created by Start.
//
// Cancellation of ctx is treated as an interruption: the job is left
// parziale with a resume point and ctx.Err() is returned.
func (c *Controller) Run(ctx context.Context, courseID uuid.UUID) error {
	return c.RunJob(ctx, courseID, uuid.Nil)
}

// RunJob is Run for a specific job. It does nothing when jobID is no longer
// the course's current job. uuid.Nil selects the current job.
func (c *Controller) RunJob(ctx context.Context, courseID, jobID uuid.UUID) error {
	job, ok := c.jobs.Get(courseID)
	if !ok {
		return ErrNoJob
	}
	if jobID != uuid.Nil && job.JobID != jobID {
		c.logger.InfoContext(ctx, "expansion job was replaced, nothing to run",
			slog.String("course_id", courseID.String()),
			slog.String("job_id", jobID.String()),
			slog.String("current_job_id", job.JobID.String()))
		return nil
	}
	if job.State == StateCanceled {
		return nil
	}
	if !job.State.Active() {
		return fmt.Errorf("%w: job is %s", ErrInvalidTransition, job.State)
	}

	opts := DefaultOptions()
	if job.Options != nil {
		opts = *job.Options
	}
	r := &jobRun{
		c:        c,
		courseID: courseID,
		jobID:    job.JobID,
		opts:     opts,
		log: c.logger.With(
			slog.String("course_id", courseID.String()),
			slog.String("job_id", job.JobID.String())),
	}

	course, err := c.courses.GetCourse(ctx, courseID)
	if err != nil {
		r.log.ErrorContext(ctx, "failed to load course for expansion", slog.String("error", err.Error()))
		c.Abort(ctx, courseID, err)
		return err
	}
	targets, err := jobChapters(course.Outline, opts)
	if err != nil {
		c.Abort(ctx, courseID, err)
		return err
	}

	out := r.loop(ctx, targets)
	r.finish(ctx, out)

	if out.reason == stopShutdown {
		return ctx.Err()
	}
	return nil
}

// jobRun is the state of one Run call.
type jobRun struct {
	c        *Controller
	courseID uuid.UUID
	jobID    uuid.UUID
	opts     Options
	log      *slog.Logger
}

// state returns the state of the run's job. A job that was forgotten or
// replaced by a newer one reads as annullato.
func (r *jobRun) state() State {
	job, ok := r.c.jobs.Get(r.courseID)
	if !ok || job.JobID != r.jobID {
		return StateCanceled
	}
	return job.State
}

func (r *jobRun) loop(ctx context.Context, chapters []domain.Chapter) outcome {
	skipping := r.opts.ResumeChapter != ""
	processed := 0

	for i, ch := range chapters {
		if skipping {
			if ch.ID != r.opts.ResumeChapter {
				r.skipChapter(ctx, ch)
				continue
			}
			skipping = false
		}

		if r.opts.SkipExpandedSince != nil && r.skipExpanded(ctx, ch) {
			continue
		}

		if processed > 0 && r.opts.ChapterDelay > 0 {
			if reason := r.delay(ctx, r.opts.ChapterDelay); reason != proceed {
				return outcome{reason: reason, resume: &ResumePoint{ChapterID: ch.ID}, chapter: i}
			}
		}
		if reason := r.gate(ctx); reason != proceed {
			return outcome{reason: reason, resume: &ResumePoint{ChapterID: ch.ID}, chapter: i}
		}
		processed++

		out := r.expandChapter(ctx, ch)
		if out.reason != proceed {
			out.chapter = i
			return out
		}
	}
	return outcome{reason: proceed}
}

// skipChapter records a chapter that precedes the resume chapter. It counts
// as expanded if its stored content is longer than its pre-expansion
// baseline.
func (r *jobRun) skipChapter(ctx context.Context, ch domain.Chapter) {
	cc, err := r.c.courses.GetChapterContent(ctx, r.courseID, ch.ID)
	if err != nil || !cc.Expanded() {
		r.updateChapter(ch.ID, func(d *ChapterDetail) { d.Message = msgSkipped })
		return
	}
	r.markExpanded(ch.ID, cc)
}

// skipExpanded records ch as done when it was already expanded by the job
// being resumed.
func (r *jobRun) skipExpanded(ctx context.Context, ch domain.Chapter) bool {
	cc, err := r.c.courses.GetChapterContent(ctx, r.courseID, ch.ID)
	if err != nil || !r.opts.alreadyExpanded(cc) {
		return false
	}
	r.log.InfoContext(ctx, "chapter already expanded, skipping", slog.String("chapter_id", ch.ID))
	r.markExpanded(ch.ID, cc)
	return true
}

func (r *jobRun) markExpanded(chapterID string, cc *domain.ChapterContent) {
	r.update(func(s *Summary) {
		s.ExpandedChapters++
		if d := s.chapter(chapterID); d != nil {
			d.Expanded = true
			d.Message = msgAlreadyExpanded
			d.OriginalLength = cc.OriginalLength
			d.ExpandedLength = cc.Length()
			d.Ratio = ratio(cc.OriginalLength, cc.Length())
		}
	})
}

func (r *jobRun) expandChapter(ctx context.Context, ch domain.Chapter) outcome {
	log := r.log.With(slog.String("chapter_id", ch.ID))

	cc, err := r.c.courses.GetChapterContent(ctx, r.courseID, ch.ID)
	if err != nil {
		if errors.Is(err, store.ErrChapterContentNotFound) {
			log.WarnContext(ctx, "chapter has no content, skipping")
			r.updateChapter(ch.ID, func(d *ChapterDetail) { d.Message = msgNoContent })
			return outcome{reason: proceed}
		}
		log.ErrorContext(ctx, "failed to load chapter content", slog.String("error", err.Error()))
		return r.chapterFailed(ch.ID, 0, stopPersistence, fmt.Sprintf(msgCheckpointLoad, redact.Error(err)))
	}

	sections := markdown.Split(cc.Content)
	if len(sections) == 0 {
		sections = []markdown.Section{{Title: ch.Title, Content: cc.Content}}
	}
	preamble := preambleOf(cc.Content, sections[0])
	digest := store.Digest(cc.Content)

	done, err := r.restore(ctx, ch.ID, cc.Content, len(sections))
	if err != nil {
		log.ErrorContext(ctx, "failed to load checkpoint", slog.String("error", err.Error()))
		return r.chapterFailed(ch.ID, 0, stopPersistence, fmt.Sprintf(msgCheckpointLoad, redact.Error(err)))
	}
	start := len(done)

	r.updateChapter(ch.ID, func(d *ChapterDetail) {
		d.InProgress = true
		d.TotalSections = len(sections)
		d.CurrentSection = start
		d.Message = msgInProgress
		if start > 0 {
			d.Message = fmt.Sprintf(msgResumeFrom, start+1, len(sections))
		}
	})
	log.InfoContext(ctx, "expanding chapter",
		slog.Int("sections", len(sections)),
		slog.Int("start_section", start))

	var model string
	for j := start; j < len(sections); j++ {
		if j > start && r.opts.SectionDelay > 0 {
			if reason := r.delay(ctx, r.opts.SectionDelay); reason != proceed {
				return r.interrupted(ch.ID, reason, len(done))
			}
		}
		if reason := r.gate(ctx); reason != proceed {
			return r.interrupted(ch.ID, reason, len(done))
		}
		r.updateChapter(ch.ID, func(d *ChapterDetail) { d.CurrentSection = j })

		section := sections[j]
		res, err := r.expandSection(ctx, ch.ID, j, section)

		// An interrupted call's result is discarded.
		if ctx.Err() != nil {
			return r.interrupted(ch.ID, stopShutdown, len(done))
		}
		if r.state() == StateCanceled {
			return r.interrupted(ch.ID, stopCanceled, len(done))
		}

		if err != nil {
			msg := fmt.Sprintf(msgSectionError, j+1, redact.Error(err))
			log.WarnContext(ctx, "section expansion failed",
				slog.Int("section", j),
				slog.String("error_kind", string(generation.KindOf(err))),
				slog.String("error", redact.Error(err)))
			if !r.opts.ContinueOnError {
				return r.chapterFailed(ch.ID, j, stopError, msg)
			}
			r.updateChapter(ch.ID, func(d *ChapterDetail) {
				d.Error = true
				d.Message = msg
				d.FailedSections = append(d.FailedSections, j)
			})
			done = append(done, section)
		} else {
			done = append(done, markdown.Section{Title: section.Title, Content: res.Content})
			model = res.Model
		}

		cp := &store.Checkpoint{
			CourseID:     r.courseID.String(),
			ChapterID:    ch.ID,
			Sections:     done,
			SourceDigest: digest,
			UpdatedAt:    time.Now().UTC(),
		}
		if err := r.c.checkpoints.Save(ctx, cp); err != nil {
			done = done[:len(done)-1]
			log.ErrorContext(ctx, "failed to save checkpoint",
				slog.Int("section", j),
				slog.String("error", err.Error()))
			return r.chapterFailed(ch.ID, len(done), stopPersistence,
				fmt.Sprintf(msgCheckpointError, j+1, redact.Error(err)))
		}

		if err == nil {
			r.c.emit(ctx, events.TypeSectionExpanded, r.courseID, events.SectionExpanded{
				ChapterID:     ch.ID,
				SectionIndex:  j,
				TotalSections: len(sections),
				Model:         model,
			})
		}
	}

	if reason := r.gate(ctx); reason != proceed {
		return r.interrupted(ch.ID, reason, len(done))
	}

	return r.saveChapter(ctx, ch, cc, preamble, done, model)
}

func (r *jobRun) expandSection(ctx context.Context, chapterID string, index int, section markdown.Section) (*generation.ExpansionResult, error) {
	prompt, err := generation.BuildExpansionPrompt(section.Content, generation.ExpansionPromptOptions{
		Factor:       r.opts.Factor,
		Style:        r.opts.Style,
		Focus:        r.opts.Focus,
		Instructions: r.opts.Instructions,
	})
	if err != nil {
		return nil, err
	}
	return r.c.client.GenerateExpandedContent(ctx, generation.ExpansionRequest{
		CourseID:                    r.courseID.String(),
		ChapterID:                   chapterID,
		SectionIndex:                index,
		Original:                    section.Content,
		Prompt:                      prompt,
		MaxAttempts:                 r.c.cfg.MaxAttempts,
		AcceptShorterOnFinalAttempt: r.c.cfg.AcceptShorterOnFinalAttempt,
	})
}

// restore returns the already expanded sections of a chapter. Checkpoints
// are only reused by resumed jobs, and only when they were taken from the
// current content; anything else is discarded.
func (r *jobRun) restore(ctx context.Context, chapterID, content string, total int) ([]markdown.Section, error) {
	id := r.courseID.String()
	if !r.opts.resuming() {
		r.discard(ctx, chapterID)
		return nil, nil
	}

	cp, err := r.c.checkpoints.Load(ctx, id, chapterID)
	if errors.Is(err, store.ErrCheckpointNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !cp.Matches(content) || len(cp.Sections) > total {
		r.log.WarnContext(ctx, "discarding stale checkpoint",
			slog.String("chapter_id", chapterID),
			slog.Int("checkpoint_sections", len(cp.Sections)),
			slog.Int("sections", total))
		r.discard(ctx, chapterID)
		return nil, nil
	}
	if chapterID == r.opts.ResumeChapter && r.opts.ResumeSection != nil && *r.opts.ResumeSection != len(cp.Sections) {
		r.log.WarnContext(ctx, "resume section differs from checkpoint, using checkpoint",
			slog.String("chapter_id", chapterID),
			slog.Int("requested", *r.opts.ResumeSection),
			slog.Int("checkpoint_sections", len(cp.Sections)))
	}
	return cp.Sections, nil
}

func (r *jobRun) discard(ctx context.Context, chapterID string) {
	if err := r.c.checkpoints.Delete(ctx, r.courseID.String(), chapterID); err != nil {
		r.log.WarnContext(ctx, "failed to delete checkpoint",
			slog.String("chapter_id", chapterID),
			slog.String("error", err.Error()))
	}
}

func (r *jobRun) saveChapter(
	ctx context.Context,
	ch domain.Chapter,
	original *domain.ChapterContent,
	preamble string,
	done []markdown.Section,
	model string,
) outcome {
	content := markdown.Join(done)
	if preamble != "" {
		content = preamble + "\n\n" + content
	}
	if model == "" {
		model = string(r.c.client.Provider())
	}
	expanded := &domain.ChapterContent{
		CourseID:       r.courseID,
		ChapterID:      ch.ID,
		Content:        content,
		ModelUsed:      model,
		OriginalLength: original.Length(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := r.c.courses.SaveChapterContent(ctx, expanded); err != nil {
		r.log.ErrorContext(ctx, "failed to save expanded chapter",
			slog.String("chapter_id", ch.ID),
			slog.String("error", err.Error()))
		return r.chapterFailed(ch.ID, len(done), stopPersistence, msgSaveFailed)
	}
	r.discard(ctx, ch.ID)

	origLen, newLen := original.Length(), utf8.RuneCountInString(content)
	rt := ratio(origLen, newLen)
	r.update(func(s *Summary) {
		s.ExpandedChapters++
		if d := s.chapter(ch.ID); d != nil {
			d.Expanded = true
			d.InProgress = false
			d.OriginalLength = origLen
			d.ExpandedLength = newLen
			d.Ratio = rt
			if len(d.FailedSections) > 0 {
				d.Message = fmt.Sprintf(msgSectionsFailed, sectionList(d.FailedSections))
			} else {
				d.Message = msgExpanded
			}
		}
	})
	r.c.emit(ctx, events.TypeChapterExpanded, r.courseID, events.ChapterExpanded{
		ChapterID:      ch.ID,
		OriginalLength: origLen,
		ExpandedLength: newLen,
		Ratio:          rt,
	})
	r.log.InfoContext(ctx, "chapter expanded",
		slog.String("chapter_id", ch.ID),
		slog.Int("original_length", origLen),
		slog.Int("expanded_length", newLen))
	return outcome{reason: proceed}
}

// chapterFailed stops the job at section of chapterID.
func (r *jobRun) chapterFailed(chapterID string, section int, reason stopReason, message string) outcome {
	r.updateChapter(chapterID, func(d *ChapterDetail) {
		d.InProgress = false
		d.Error = true
		d.Message = message
	})
	return outcome{reason: reason, resume: &ResumePoint{ChapterID: chapterID, Section: section}}
}

func (r *jobRun) interrupted(chapterID string, reason stopReason, section int) outcome {
	r.updateChapter(chapterID, func(d *ChapterDetail) { d.InProgress = false })
	return outcome{reason: reason, resume: &ResumePoint{ChapterID: chapterID, Section: section}}
}

// finish records the job's final state. A job canceled by the user stays
// annullato whatever the loop was doing.
func (r *jobRun) finish(ctx context.Context, out outcome) {
	summary, err := r.c.jobs.Update(r.courseID, func(s *Summary) error {
		if s.JobID != r.jobID {
			return errJobReplaced
		}
		for i := range s.Chapters {
			s.Chapters[i].InProgress = false
		}
		if s.State == StateCanceled || out.reason == stopCanceled {
			s.State = StateCanceled
			s.Message = msgCanceled
			s.ResumePoint = out.resume
			return nil
		}

		s.ResumePoint = out.resume
		switch out.reason {
		case stopError:
			s.State = StatePartial
			s.Message = fmt.Sprintf(msgStopped, out.chapter+1, s.TotalChapters)
		case stopPersistence:
			s.State = StatePartial
			s.Message = fmt.Sprintf(msgStoppedSave, out.chapter+1, s.TotalChapters)
		case stopShutdown:
			s.State = StatePartial
			s.Message = msgInterrupted
		default:
			s.ResumePoint = nil
			switch {
			case s.ExpandedChapters >= s.TotalChapters:
				s.State = StateCompleted
				s.Message = fmt.Sprintf(msgCompleted, s.TotalChapters)
			case s.ExpandedChapters > 0:
				s.State = StatePartial
				s.Message = fmt.Sprintf(msgPartial, s.ExpandedChapters, s.TotalChapters)
			default:
				s.State = StateFailed
				s.Message = msgFailed
			}
		}
		s.Success = s.State != StateFailed
		return nil
	})
	if err != nil {
		r.log.InfoContext(ctx, "expansion job is gone, final state not recorded", slog.String("error", err.Error()))
		return
	}

	r.log.InfoContext(ctx, "expansion job finished",
		slog.String("state", string(summary.State)),
		slog.Int("expanded_chapters", summary.ExpandedChapters),
		slog.Int("total_chapters", summary.TotalChapters))
	r.c.emit(ctx, events.TypeJobFinished, r.courseID, events.JobFinished{
		State:            string(summary.State),
		ExpandedChapters: summary.ExpandedChapters,
		TotalChapters:    summary.TotalChapters,
		Message:          summary.Message,
	})
}

// gate blocks while the job is paused and reports whether the loop may go on.
func (r *jobRun) gate(ctx context.Context) stopReason {
	logged := false
	for {
		if ctx.Err() != nil {
			return stopShutdown
		}
		switch r.state() {
		case StateCanceled:
			return stopCanceled
		case StatePaused:
			if !logged {
				r.log.InfoContext(ctx, "expansion paused, waiting")
				logged = true
			}
			if !sleep(ctx, r.c.cfg.PollInterval) {
				return stopShutdown
			}
		default:
			return proceed
		}
	}
}

// delay waits d in poll-sized steps, returning early on cancellation.
func (r *jobRun) delay(ctx context.Context, d time.Duration) stopReason {
	deadline := time.Now().Add(d)
	for {
		if r.state() == StateCanceled {
			return stopCanceled
		}
		left := time.Until(deadline)
		if left <= 0 {
			return proceed
		}
		if !sleep(ctx, min(left, r.c.cfg.PollInterval)) {
			return stopShutdown
		}
	}
}

func (r *jobRun) update(fn func(*Summary)) {
	_, _ = r.c.jobs.Update(r.courseID, func(s *Summary) error {
		if s.JobID != r.jobID {
			return errJobReplaced
		}
		fn(s)
		return nil
	})
}

func (r *jobRun) updateChapter(chapterID string, fn func(*ChapterDetail)) {
	r.update(func(s *Summary) {
		if d := s.chapter(chapterID); d != nil {
			fn(d)
		}
	})
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// preambleOf returns the text of content that precedes its first section,
// typically the chapter's "# " title.
func preambleOf(content string, first markdown.Section) string {
	head := first.Content
	if nl := strings.IndexByte(head, '\n'); nl >= 0 {
		head = head[:nl]
	}
	idx := strings.Index(content, head)
	if idx <= 0 {
		return ""
	}
	return strings.TrimSpace(content[:idx])
}

func ratio(original, expanded int) float64 {
	if original <= 0 {
		return 0
	}
	return math.Round(float64(expanded)/float64(original)*10) / 10
}

func sectionList(indexes []int) string {
	parts := make([]string, len(indexes))
	for i, idx := range indexes {
		parts[i] = fmt.Sprint(idx + 1)
	}
	return strings.Join(parts, ", ")
}
