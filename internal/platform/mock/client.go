// Package mock implements generation.Client without calling any provider.
// It returns a fixed three-chapter outline and deterministic chapter and
// expansion text, and is used when no API key is configured.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
)

// ModelName is reported as the model of every result.
const ModelName = "mock"

const messageKeyMock = "Client di mock attivo: nessuna chiave API richiesta"

// Client is the offline implementation of generation.Client.
type Client struct {
	logger *slog.Logger
}

var _ generation.Client = (*Client)(nil)

// New creates a Client. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{logger: logger.With("component", "mock_provider")}
}

// Provider names the backend.
func (c *Client) Provider() generation.Provider {
	return generation.ProviderMock
}

// GenerateOutline returns the fixed outline titled after params.
func (c *Client) GenerateOutline(ctx context.Context, params domain.CourseParams) (*generation.OutlineResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "Generating mock outline", "title", params.Title)

	outline := &domain.Outline{
		Title:          params.Title,
		Description:    params.Description,
		EstimatedHours: "10 ore",
		Chapters: []domain.Chapter{
			{
				ID:          "cap1",
				Title:       "Introduzione al corso",
				Description: "Panoramica generale dei concetti che verranno trattati",
				Subtopics: []domain.Subtopic{
					{Title: "Obiettivi del corso", KeyPoints: []string{
						"Comprendere i fondamenti", "Applicare le conoscenze", "Sviluppare competenze pratiche"}},
					{Title: "Metodologia didattica", KeyPoints: []string{
						"Approccio teorico-pratico", "Esercitazioni guidate", "Progetti reali"}},
				},
			},
			{
				ID:          "cap2",
				Title:       "Concetti fondamentali",
				Description: "I principi base della materia",
				Subtopics: []domain.Subtopic{
					{Title: "Terminologia essenziale", KeyPoints: []string{
						"Definizioni chiave", "Contesto storico", "Evoluzione dei concetti"}},
					{Title: "Framework teorico", KeyPoints: []string{
						"Principi fondamentali", "Modelli concettuali", "Applicazioni pratiche"}},
				},
			},
			{
				ID:          "cap3",
				Title:       "Applicazioni pratiche",
				Description: "Come applicare le conoscenze in contesti reali",
				Subtopics: []domain.Subtopic{
					{Title: "Casi di studio", KeyPoints: []string{
						"Analisi di esempi reali", "Lezioni apprese", "Best practices"}},
					{Title: "Esercitazioni guidate", KeyPoints: []string{
						"Step-by-step tutorial", "Risoluzione di problemi comuni", "Tecniche avanzate"}},
				},
			},
		},
	}
	outline.Normalize()

	return &generation.OutlineResult{Outline: outline, Model: ModelName}, nil
}

// GenerateChapterContent writes a chapter with one section per subtopic and
// one subsection per key point.
func (c *Client) GenerateChapterContent(
	ctx context.Context,
	_ domain.CourseParams,
	outline *domain.Outline,
	chapterID string,
	_ []generation.PriorChapter,
) (*generation.ChapterResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if outline == nil {
		return nil, fmt.Errorf("%w: %s (course has no outline)", generation.ErrChapterNotFound, chapterID)
	}
	ch, _, ok := outline.Chapter(chapterID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", generation.ErrChapterNotFound, chapterID)
	}
	c.logger.InfoContext(ctx, "Generating mock chapter", "chapter_id", chapterID)

	title := strings.ToLower(ch.Title)
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", ch.Title, ch.Description)
	fmt.Fprintf(&b, "## Introduzione\n\nQuesto capitolo esplora i concetti fondamentali di %s, "+
		"fornendo una solida base per comprendere i temi trattati nel corso. "+
		"L'obiettivo è fornire sia le conoscenze teoriche che gli strumenti pratici "+
		"per applicare questi concetti in situazioni reali.\n\n", title)

	for _, sub := range ch.Subtopics {
		fmt.Fprintf(&b, "## %s\n\nIn questa sezione affronteremo %s, "+
			"un aspetto cruciale per la comprensione complessiva della materia.\n\n",
			sub.Title, strings.ToLower(sub.Title))
		if len(sub.KeyPoints) > 0 {
			for _, point := range sub.KeyPoints {
				fmt.Fprintf(&b, "### %s\n\nL'aspetto di %s è fondamentale perché consente di sviluppare "+
					"una comprensione più profonda dell'argomento.\n\n"+
					"Esempio pratico: [Qui verrebbe inserito un esempio reale relativo a questo punto chiave].\n\n",
					point, strings.ToLower(point))
			}
		} else if sub.Description != "" {
			fmt.Fprintf(&b, "%s\n\nEsempio pratico: [Qui verrebbe inserito un esempio reale "+
				"relativo a questo sottoargomento].\n\n", sub.Description)
		}
	}

	fmt.Fprintf(&b, "## Conclusione\n\nIn questo capitolo abbiamo esplorato %s, partendo dai concetti base "+
		"fino ad arrivare alle applicazioni pratiche.", title)

	return &generation.ChapterResult{
		Content: markdown.Normalize(b.String(), markdown.DialectGeneric),
		Model:   ModelName,
	}, nil
}

// GenerateExpandedContent appends a fixed elaboration to the section, so the
// result is always longer than the original.
func (c *Client) GenerateExpandedContent(ctx context.Context, req generation.ExpansionRequest) (*generation.ExpansionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	expanded := strings.TrimRight(req.Original, "\n") + "\n\n" +
		"Approfondimento: questo punto viene ampliato con esempi concreti, " +
		"collegamenti agli altri argomenti del corso e indicazioni pratiche per l'applicazione.\n"
	content := markdown.Normalize(expanded, markdown.DialectGeneric)

	return &generation.ExpansionResult{
		Content:        content,
		Model:          ModelName,
		OriginalLength: utf8.RuneCountInString(req.Original),
		ExpandedLength: utf8.RuneCountInString(content),
		Attempts:       1,
	}, nil
}

// VerifyAPIKey always succeeds.
func (c *Client) VerifyAPIKey(context.Context) (*generation.KeyStatus, error) {
	return &generation.KeyStatus{Valid: true, StatusCode: http.StatusOK, Message: messageKeyMock}, nil
}
