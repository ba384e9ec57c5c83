package markdown

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitOnSecondLevelHeadings(t *testing.T) {
	content := "# Capitolo\n\nIntro scartata.\n\n## Primo\n\ntesto uno\n\n## Secondo\n\ntesto due\n"

	sections := Split(content)

	require.Len(t, sections, 2)
	assert.Equal(t, Section{Title: "Primo", Content: "## Primo\n\ntesto uno"}, sections[0])
	assert.Equal(t, Section{Title: "Secondo", Content: "## Secondo\n\ntesto due"}, sections[1])
}

func TestSplitIgnoresHeadingsInsideCode(t *testing.T) {
	content := "## Codice\n\n```\n## non un titolo\n```\n"

	sections := Split(content)

	require.Len(t, sections, 1)
	assert.Equal(t, "Codice", sections[0].Title)
	assert.Contains(t, sections[0].Content, "## non un titolo")
}

func TestSplitFallsBackToDocumentTitle(t *testing.T) {
	content := "# Solo titolo\n\nParagrafo uno.\n\nParagrafo due.\n"

	sections := Split(content)

	require.Len(t, sections, 1)
	assert.Equal(t, "Solo titolo", sections[0].Title)
	assert.Equal(t, strings.TrimRight(content, "\n"), sections[0].Content)
}

func TestSplitFallsBackToParagraphGroups(t *testing.T) {
	var paragraphs []string
	for i := 1; i <= 7; i++ {
		paragraphs = append(paragraphs, fmt.Sprintf("paragrafo %d", i))
	}

	sections := Split(strings.Join(paragraphs, "\n\n"))

	require.Len(t, sections, 2)
	assert.Equal(t, "Parte 1", sections[0].Title)
	assert.Equal(t, strings.Join(paragraphs[:5], "\n\n"), sections[0].Content)
	assert.Equal(t, "Parte 2", sections[1].Title)
	assert.Equal(t, strings.Join(paragraphs[5:], "\n\n"), sections[1].Content)
}

func TestSplitSingleParagraph(t *testing.T) {
	sections := Split("solo testo")

	require.Len(t, sections, 1)
	assert.Equal(t, Section{Title: "Contenuto", Content: "solo testo"}, sections[0])
}

func TestSplitBlankContent(t *testing.T) {
	assert.Empty(t, Split(""))
	assert.Empty(t, Split(" \n\n "))
}

func TestSplitLongSectionByParagraphs(t *testing.T) {
	paragraph := strings.Repeat("a", 900)
	body := strings.Join([]string{paragraph, paragraph, paragraph, paragraph}, "\n\n")
	content := "## Lunga\n\n" + body

	sections := Split(content)

	require.Greater(t, len(sections), 1)
	for i, s := range sections {
		assert.Equal(t, fmt.Sprintf("Lunga - Parte %d", i+1), s.Title)
		assert.LessOrEqual(t, utf8.RuneCountInString(s.Content), MaxSectionSize)
	}
	assert.Equal(t, "## Lunga", sections[0].Content[:len("## Lunga")])
}

func TestSplitLongParagraphBySentences(t *testing.T) {
	sentence := strings.Repeat("parola ", 20) + "fine."
	var sentences []string
	for i := 0; i < 25; i++ {
		sentences = append(sentences, sentence)
	}

	sections := Split(strings.Join(sentences, " "))

	require.Len(t, sections, 3)
	assert.Equal(t, "Contenuto - Parte 1", sections[0].Title)
	assert.Equal(t, strings.Join(sentences[:10], " "), sections[0].Content)
	assert.Equal(t, strings.Join(sentences[20:], " "), sections[2].Content)
}

func TestSplitHardCutsOversizedSentence(t *testing.T) {
	text := strings.Repeat("é", 2*MaxSectionSize+10)

	sections := Split(text)

	require.Len(t, sections, 3)
	for _, s := range sections {
		assert.LessOrEqual(t, utf8.RuneCountInString(s.Content), MaxSectionSize)
	}
	assert.Equal(t, 10, utf8.RuneCountInString(sections[2].Content))
}

// randomParagraph returns a paragraph of roughly size runes made of short
// sentences, or a single unbroken word when unbroken is set.
func randomParagraph(rng *rand.Rand, size int, unbroken bool) string {
	if unbroken {
		return strings.Repeat("è", size)
	}
	var sentences []string
	for n := 0; n < size; {
		s := strings.Repeat("perché ", 1+rng.Intn(30)) + []string{"fine.", "davvero!", "forse?"}[rng.Intn(3)]
		sentences = append(sentences, s)
		n += utf8.RuneCountInString(s) + 1
	}
	return strings.Join(sentences, " ")
}

func TestSplitSectionCountGrowsWithContent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	var paragraphs []string
	for i := 0; i < 40; i++ {
		paragraphs = append(paragraphs, randomParagraph(rng, 50+rng.Intn(2600), rng.Intn(10) == 0))
	}

	t.Run("paragraphs without headings", func(t *testing.T) {
		prev := 0
		for n := 1; n <= len(paragraphs); n++ {
			got := len(Split(strings.Join(paragraphs[:n], "\n\n")))
			require.GreaterOrEqual(t, got, prev, "%d paragraphs", n)
			prev = got
		}
	})

	t.Run("paragraphs under one heading", func(t *testing.T) {
		prev := 0
		for n := 1; n <= len(paragraphs); n++ {
			got := len(Split("## Unica\n\n" + strings.Join(paragraphs[:n], "\n\n")))
			require.GreaterOrEqual(t, got, prev, "%d paragraphs", n)
			prev = got
		}
	})

	t.Run("headed sections", func(t *testing.T) {
		var doc strings.Builder
		doc.WriteString("# Capitolo\n\nIntro.\n")
		prev := 0
		for i, p := range paragraphs {
			fmt.Fprintf(&doc, "\n## Sezione %d\n\n%s\n", i+1, p)
			got := len(Split(doc.String()))
			require.Greater(t, got, prev, "%d sections", i+1)
			prev = got
		}
	})
}

func TestSplitNeverExceedsMaxSectionSize(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 200; i++ {
		var blocks []string
		if rng.Intn(2) == 0 {
			blocks = append(blocks, "# Titolo")
		}
		for j := 0; j < 1+rng.Intn(12); j++ {
			if rng.Intn(3) == 0 {
				blocks = append(blocks, fmt.Sprintf("## Sezione %d", j))
			}
			blocks = append(blocks, randomParagraph(rng, 1+rng.Intn(4500), rng.Intn(8) == 0))
		}
		doc := strings.Join(blocks, "\n\n")

		sections := Split(doc)

		require.NotEmpty(t, sections)
		for _, s := range sections {
			require.LessOrEqual(t, utf8.RuneCountInString(s.Content), MaxSectionSize, "document %d", i)
			require.NotEmpty(t, strings.TrimSpace(s.Content), "document %d", i)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Uno. Due!  Tre?\nQuattro 3.5 volte")
	assert.Equal(t, []string{"Uno.", "Due!", "Tre?", "Quattro 3.5 volte"}, got)
}

func TestJoinReassemblesSplit(t *testing.T) {
	content := "## A\n\ntesto a\n\n## B\n\n- punto\n- punto\n\n## C\n\nfine\n"

	assert.Equal(t, content, Join(Split(content)))
}

func TestJoinEmpty(t *testing.T) {
	assert.Equal(t, "", Join(nil))
}
