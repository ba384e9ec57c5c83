package expansion

import (
	"fmt"
	"strings"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
)

// Option defaults.
const (
	DefaultFactor       = 3
	DefaultStyle        = "discorsivo"
	DefaultSectionDelay = time.Second

	maxFactor = 10
	maxDelay  = 10 * time.Minute
)

// Options tune one expansion job.
type Options struct {
	// Factor is the target length multiplier given to the model.
	Factor int `json:"expansion_factor"`

	// Style names the writing style, e.g. "discorsivo" or "accademico".
	Style        string   `json:"style"`
	Focus        []string `json:"focus,omitempty"`
	Instructions string   `json:"extra_instructions,omitempty"`

	// ContinueOnError keeps going after a failed section, leaving the
	// original section text in place.
	ContinueOnError bool `json:"continue_on_error"`

	ChapterDelay time.Duration `json:"inter_chapter_delay"`
	SectionDelay time.Duration `json:"inter_section_delay"`

	// SingleChapter restricts the job to one chapter.
	SingleChapter string `json:"single_chapter,omitempty"`

	// ResumeChapter and ResumeSection continue a previous job from its
	// resume point. Checkpoints are only reused when one of them is set.
	ResumeChapter string `json:"resume_chapter,omitempty"`
	ResumeSection *int   `json:"resume_section,omitempty"`

	// SkipExpandedSince, when set, counts chapters expanded at or after
	// this time as done instead of expanding them again. A zero time
	// matches every expanded chapter. Jobs rebuilt after a restart set it.
	SkipExpandedSince *time.Time `json:"skip_expanded_since,omitempty"`
}

// DefaultOptions returns the options used when a caller sets nothing.
func DefaultOptions() Options {
	return Options{
		Factor:       DefaultFactor,
		Style:        DefaultStyle,
		SectionDelay: DefaultSectionDelay,
	}
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.Factor == 0 {
		o.Factor = DefaultFactor
	}
	o.Style = strings.TrimSpace(o.Style)
	if o.Style == "" {
		o.Style = DefaultStyle
	}
	focus := o.Focus[:0:0]
	for _, f := range o.Focus {
		if f = strings.TrimSpace(f); f != "" {
			focus = append(focus, f)
		}
	}
	o.Focus = focus
	o.Instructions = strings.TrimSpace(o.Instructions)
	return o
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	switch {
	case o.Factor < 1 || o.Factor > maxFactor:
		return fmt.Errorf("%w: expansion factor must be between 1 and %d, got %d", ErrInvalidOptions, maxFactor, o.Factor)
	case o.ChapterDelay < 0 || o.ChapterDelay > maxDelay:
		return fmt.Errorf("%w: inter-chapter delay must be between 0 and %s", ErrInvalidOptions, maxDelay)
	case o.SectionDelay < 0 || o.SectionDelay > maxDelay:
		return fmt.Errorf("%w: inter-section delay must be between 0 and %s", ErrInvalidOptions, maxDelay)
	case o.ResumeSection != nil && *o.ResumeSection < 0:
		return fmt.Errorf("%w: resume section cannot be negative", ErrInvalidOptions)
	case o.ResumeSection != nil && o.ResumeChapter == "":
		return fmt.Errorf("%w: resume section requires a resume chapter", ErrInvalidOptions)
	}
	return nil
}

// resuming reports whether the job continues a previous one.
func (o Options) resuming() bool {
	return o.ResumeChapter != "" || o.ResumeSection != nil
}

func (o Options) clone() Options {
	c := o
	c.Focus = append([]string(nil), o.Focus...)
	if o.ResumeSection != nil {
		v := *o.ResumeSection
		c.ResumeSection = &v
	}
	if o.SkipExpandedSince != nil {
		v := *o.SkipExpandedSince
		c.SkipExpandedSince = &v
	}
	return c
}

// alreadyExpanded reports whether cc was expanded by the job being resumed.
func (o Options) alreadyExpanded(cc *domain.ChapterContent) bool {
	if o.SkipExpandedSince == nil || !cc.Expanded() {
		return false
	}
	// Stores keep timestamps to the microsecond.
	return !cc.UpdatedAt.Before(o.SkipExpandedSince.Truncate(time.Microsecond))
}
