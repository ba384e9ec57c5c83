// Package expansion runs resumable expansion jobs over the chapters of a
// course.
//
// A job walks the course outline chapter by chapter. Each chapter is split
// into sections; every section is rewritten at greater length by a
// generation.Client and checkpointed as soon as it succeeds, so a crash or a
// failed call loses at most one section of work. When all sections of a
// chapter are done they are joined and saved over the chapter's content and
// the checkpoint is deleted.
//
// Jobs are cooperative. Pause, resume and cancel change the job's state in
// the JobStore; the running loop observes the change at its next check point,
// between sections and between chapters. While paused the loop polls every
// Config.PollInterval and re-checks for cancellation on every poll. An
// in-flight call is never interrupted by a cancel: its result is discarded.
//
// At most one job per course is active (in_corso or in_pausa) at a time.
// Starting a second one is rejected with ErrJobActive.
package expansion
