package markdown

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxSectionSize is the largest section, in characters, handed to a
	// provider in a single expansion request.
	MaxSectionSize = 2000

	paragraphsPerChunk = 5
	sentencesPerChunk  = 10
)

var (
	sectionHeadingRegex = regexp.MustCompile(`^##\s+(.+)$`)
	paragraphBreakRegex = regexp.MustCompile(`\n\s*\n`)
)

// Section is one independently expandable slice of a chapter.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Split divides a chapter into sections at its "## " headings. Each section's
// content starts with its heading line. Text before the first "## " heading is
// not part of any section.
//
// Without "## " headings the whole chapter becomes one section titled after
// its "# " heading, or, failing that, groups of five paragraphs. Sections
// longer than MaxSectionSize are cut further so that no returned section
// exceeds it.
func Split(content string) []Section {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var (
		sections []Section
		title    string
		body     []string
		open     bool
		inCode   bool
		docTitle string
	)

	flush := func() {
		if open {
			sections = append(sections, Section{
				Title:   title,
				Content: strings.TrimRight(strings.Join(body, "\n"), "\n \t"),
			})
		}
	}

	for _, line := range strings.Split(content, "\n") {
		if isFence(line) {
			inCode = toggleFence(inCode, line)
		}
		if !inCode && docTitle == "" && strings.HasPrefix(line, "# ") {
			docTitle = strings.TrimSpace(line[2:])
		}
		if m := sectionHeadingRegex.FindStringSubmatch(line); m != nil && !inCode {
			flush()
			title = strings.TrimSpace(m[1])
			body = []string{line}
			open = true
			continue
		}
		if open {
			body = append(body, line)
		}
	}
	flush()

	if len(sections) == 0 {
		sections = fallbackSections(content, docTitle)
	}

	final := make([]Section, 0, len(sections))
	for _, s := range sections {
		final = append(final, subdivide(s)...)
	}
	return final
}

func fallbackSections(content, docTitle string) []Section {
	trimmed := strings.TrimRight(content, "\n \t")
	if docTitle != "" {
		return []Section{{Title: docTitle, Content: trimmed}}
	}

	paragraphs := splitParagraphs(trimmed)
	if len(paragraphs) <= 1 {
		return []Section{{Title: "Contenuto", Content: trimmed}}
	}

	var sections []Section
	for i := 0; i < len(paragraphs); i += paragraphsPerChunk {
		end := min(i+paragraphsPerChunk, len(paragraphs))
		sections = append(sections, Section{
			Title:   fmt.Sprintf("Parte %d", i/paragraphsPerChunk+1),
			Content: strings.Join(paragraphs[i:end], "\n\n"),
		})
	}
	return sections
}

func subdivide(s Section) []Section {
	if utf8.RuneCountInString(s.Content) <= MaxSectionSize {
		return []Section{s}
	}

	var chunks []string
	if paragraphs := splitParagraphs(s.Content); len(paragraphs) > 1 {
		chunks = packParagraphs(paragraphs)
	} else {
		chunks = packSentences(splitSentences(s.Content))
	}

	out := make([]Section, len(chunks))
	for i, c := range chunks {
		out[i] = Section{
			Title:   fmt.Sprintf("%s - Parte %d", s.Title, i+1),
			Content: c,
		}
	}
	return out
}

// packParagraphs groups paragraphs five at a time, closing a group early when
// it would grow past MaxSectionSize. An oversized paragraph is packed by
// sentences on its own.
func packParagraphs(paragraphs []string) []string {
	var (
		chunks []string
		group  []string
		size   int
	)
	flush := func() {
		if len(group) > 0 {
			chunks = append(chunks, strings.Join(group, "\n\n"))
		}
		group, size = nil, 0
	}

	for _, p := range paragraphs {
		n := utf8.RuneCountInString(p)
		if n > MaxSectionSize {
			flush()
			chunks = append(chunks, packSentences(splitSentences(p))...)
			continue
		}
		if len(group) == paragraphsPerChunk || (len(group) > 0 && size+2+n > MaxSectionSize) {
			flush()
		}
		if len(group) > 0 {
			size += 2
		}
		group = append(group, p)
		size += n
	}
	flush()
	return chunks
}

func packSentences(sentences []string) []string {
	var (
		chunks []string
		group  []string
		size   int
	)
	flush := func() {
		if len(group) > 0 {
			chunks = append(chunks, strings.Join(group, " "))
		}
		group, size = nil, 0
	}

	for _, s := range sentences {
		n := utf8.RuneCountInString(s)
		if n > MaxSectionSize {
			flush()
			chunks = append(chunks, hardCut(s, MaxSectionSize)...)
			continue
		}
		if len(group) == sentencesPerChunk || (len(group) > 0 && size+1+n > MaxSectionSize) {
			flush()
		}
		if len(group) > 0 {
			size++
		}
		group = append(group, s)
		size += n
	}
	flush()
	return chunks
}

func splitParagraphs(content string) []string {
	var out []string
	for _, p := range paragraphBreakRegex.Split(content, -1) {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences cuts text after '.', '!' or '?' when followed by whitespace.
// The terminator stays with its sentence; the whitespace is dropped.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
		default:
			continue
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func hardCut(s string, size int) []string {
	runes := []rune(s)
	out := make([]string, 0, len(runes)/size+1)
	for len(runes) > size {
		out = append(out, string(runes[:size]))
		runes = runes[size:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// Join reassembles sections in order, separated by a blank line.
func Join(sections []Section) string {
	if len(sections) == 0 {
		return ""
	}
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		c := strings.TrimRight(s.Content, "\n")
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n\n") + "\n"
}
