package generation

import "strings"

const (
	summaryMaxRunes = 500
	summaryCutFrom  = summaryMaxRunes / 2
)

// Summarize shortens chapter content for use as prior-chapter context. Short
// content is returned as is; longer content is cut at the first full stop
// past the halfway mark, or at the limit with a trailing ellipsis.
func Summarize(content string) string {
	runes := []rune(content)
	if len(runes) <= summaryMaxRunes {
		return content
	}
	for i := summaryCutFrom; i < summaryMaxRunes; i++ {
		if runes[i] == '.' {
			return string(runes[:i+1])
		}
	}
	return string(runes[:summaryMaxRunes]) + "..."
}

// PriorChapters summarizes the chapters that precede chapterID in outline
// and have content.
func PriorChapters(chapters []PriorChapterSource, chapterID string) []PriorChapter {
	var prior []PriorChapter
	for _, ch := range chapters {
		if ch.ID == chapterID {
			break
		}
		if strings.TrimSpace(ch.Content) == "" {
			continue
		}
		prior = append(prior, PriorChapter{ID: ch.ID, Title: ch.Title, Summary: Summarize(ch.Content)})
	}
	return prior
}

// PriorChapterSource is an outline chapter with its stored content, if any.
type PriorChapterSource struct {
	ID      string
	Title   string
	Content string
}
