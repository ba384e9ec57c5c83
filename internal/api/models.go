package api

import (
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/expansion"
	"github.com/gnicolai/AI-Courses-Generator/internal/service"
)

// CreateCourseRequest is the body of POST /api/courses.
type CreateCourseRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"required,max=4000"`
	Audience     string `json:"audience" validate:"required,max=200"`
	Complexity   string `json:"complexity" validate:"required,max=50"`
	Tone         string `json:"tone" validate:"required,max=100"`
	Requirements string `json:"requirements,omitempty" validate:"max=4000"`
	WritingStyle string `json:"writing_style,omitempty" validate:"max=200"`
}

// Params converts the request into course parameters.
func (r CreateCourseRequest) Params() domain.CourseParams {
	return domain.CourseParams{
		Title:        r.Title,
		Description:  r.Description,
		Audience:     r.Audience,
		Complexity:   r.Complexity,
		Tone:         r.Tone,
		Requirements: r.Requirements,
		WritingStyle: r.WritingStyle,
	}
}

// UpdateChapterRequest is the body of PUT /api/courses/{id}/chapters/{chapterID}.
type UpdateChapterRequest struct {
	Content string `json:"content" validate:"required"`
}

// StartExpansionRequest is the optional body of POST /api/courses/{id}/expansion.
// Delays are in seconds. Unset fields take the defaults of
// expansion.DefaultOptions.
type StartExpansionRequest struct {
	ExpansionFactor   *int     `json:"expansion_factor,omitempty" validate:"omitempty,min=1,max=10"`
	Style             string   `json:"style,omitempty" validate:"max=100"`
	Focus             []string `json:"focus,omitempty" validate:"max=20,dive,max=200"`
	ExtraInstructions string   `json:"extra_instructions,omitempty" validate:"max=4000"`
	ContinueOnError   bool     `json:"continue_on_error,omitempty"`
	InterChapterDelay *float64 `json:"inter_chapter_delay,omitempty" validate:"omitempty,gte=0,lte=600"`
	InterSectionDelay *float64 `json:"inter_section_delay,omitempty" validate:"omitempty,gte=0,lte=600"`
	SingleChapter     string   `json:"single_chapter,omitempty" validate:"max=100"`
	ResumeChapter     string   `json:"resume_chapter,omitempty" validate:"max=100"`
	ResumeSection     *int     `json:"resume_section,omitempty" validate:"omitempty,gte=0"`
}

// Options converts the request into expansion options.
func (r StartExpansionRequest) Options() expansion.Options {
	opts := expansion.DefaultOptions()
	if r.ExpansionFactor != nil {
		opts.Factor = *r.ExpansionFactor
	}
	if r.Style != "" {
		opts.Style = r.Style
	}
	opts.Focus = r.Focus
	opts.Instructions = r.ExtraInstructions
	opts.ContinueOnError = r.ContinueOnError
	if r.InterChapterDelay != nil {
		opts.ChapterDelay = seconds(*r.InterChapterDelay)
	}
	if r.InterSectionDelay != nil {
		opts.SectionDelay = seconds(*r.InterSectionDelay)
	}
	opts.SingleChapter = r.SingleChapter
	opts.ResumeChapter = r.ResumeChapter
	opts.ResumeSection = r.ResumeSection
	return opts
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// CourseListResponse is the body of GET /api/courses.
type CourseListResponse struct {
	Courses []*domain.CourseSummary `json:"courses"`
}

// BatchGenerationErrorResponse reports a batch that stopped on a failed
// chapter together with the chapters generated before it.
type BatchGenerationErrorResponse struct {
	Error   string                   `json:"error"`
	TraceID string                   `json:"trace_id,omitempty"`
	Report  *service.BatchGeneration `json:"report"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
