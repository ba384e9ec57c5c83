package expansion

import "errors"

var (
	// ErrJobActive is returned when a job for the course is already running
	// or paused.
	ErrJobActive = errors.New("an expansion is already in progress for this course")

	// ErrIncompleteCourse is returned when not every outline chapter has
	// generated content.
	ErrIncompleteCourse = errors.New("every chapter must be generated before expansion")

	// ErrNoContent is returned when the course has no chapter content at all.
	ErrNoContent = errors.New("no chapter content found for this course")

	// ErrInvalidTransition is returned by Pause, Resume and Cancel when the
	// job is not in a state the request applies to.
	ErrInvalidTransition = errors.New("invalid expansion state transition")

	// ErrNoJob is returned when the course has no expansion job.
	ErrNoJob = errors.New("no expansion job for this course")

	// ErrInvalidOptions is returned for out-of-range expansion options.
	ErrInvalidOptions = errors.New("invalid expansion options")
)
