package generation

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(promptFS, "prompts/*.tmpl"),
)

// System instructions sent alongside generation prompts.
const (
	SystemOutline = "Sei un esperto nella creazione di corsi formativi."
	SystemContent = "Sei un esperto nella creazione di contenuti didattici di alta qualità."
)

// strengthenSuffix is appended to an expansion prompt after a reply that was
// not longer than the source.
const strengthenSuffix = "\n\nIMPORTANTE: Il testo espanso DEVE essere significativamente più lungo " +
	"dell'originale. È fondamentale aggiungere esempi, spiegazioni più dettagliate e " +
	"ampliamenti sostanziali ad ogni concetto."

// Tier sizes an outline for a complexity level.
type Tier struct {
	Chapters  string
	Subtopics string
	Depth     string
}

// TierFor maps a complexity level to outline bounds. "base" and
// "principiante" get the smallest outline, "intermedio" the middle one, and
// anything else the largest.
func TierFor(complexity string) Tier {
	switch strings.ToLower(strings.TrimSpace(complexity)) {
	case "base", "principiante":
		return Tier{Chapters: "3-4", Subtopics: "2-3", Depth: "semplice e introduttiva"}
	case "intermedio":
		return Tier{Chapters: "4-6", Subtopics: "3-5", Depth: "moderatamente dettagliata"}
	default:
		return Tier{
			Chapters:  "6-10",
			Subtopics: "4-8",
			Depth:     "molto approfondita, con concetti avanzati, casi di studio e applicazioni reali",
		}
	}
}

// BuildOutlinePrompt renders the outline request for params.
func BuildOutlinePrompt(params domain.CourseParams) (string, error) {
	return render("outline.tmpl", struct {
		Params domain.CourseParams
		Tier   Tier
	}{params, TierFor(params.Complexity)})
}

// BuildChapterPrompt renders the request for one chapter's body.
func BuildChapterPrompt(params domain.CourseParams, chapter *domain.Chapter, prior []PriorChapter) (string, error) {
	return render("chapter.tmpl", struct {
		Params  domain.CourseParams
		Chapter *domain.Chapter
		Prior   []PriorChapter
	}{params, chapter, prior})
}

// ExpansionPromptOptions are the user-facing knobs of an expansion.
type ExpansionPromptOptions struct {
	Factor       int
	Style        string
	Focus        []string
	Instructions string
}

// BuildExpansionPrompt renders the request to expand one section.
func BuildExpansionPrompt(content string, opts ExpansionPromptOptions) (string, error) {
	return render("expansion.tmpl", struct {
		Content string
		ExpansionPromptOptions
	}{content, opts})
}

// StrengthenPrompt appends the explicit length requirement to prompt.
func StrengthenPrompt(prompt string) string {
	return prompt + strengthenSuffix
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}
