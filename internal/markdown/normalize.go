package markdown

import (
	"regexp"
	"strings"
)

// Dialect selects provider-specific cleanup rules.
type Dialect string

const (
	// DialectGeneric applies only the rules shared by every provider.
	DialectGeneric Dialect = "generic"

	// DialectDeepSeek adds list, emphasis and block-quote cleanup for the
	// DeepSeek chat dialect, which tends to emit loosely formatted lists.
	DialectDeepSeek Dialect = "deepseek"
)

var (
	wrapperFenceRegex   = regexp.MustCompile("(?i)^\x60\x60\x60[ \t]*markdown[ \t]*$")
	fenceRegex          = regexp.MustCompile("^[ \t]*\x60\x60\x60")
	bareFenceRegex      = regexp.MustCompile("^[ \t]*\x60\x60\x60+[ \t]*$")
	headingMarkerRegex  = regexp.MustCompile(`^(#{1,6})([^ #].*)$`)
	headingRegex        = regexp.MustCompile(`^#{1,6} `)
	bulletRegex         = regexp.MustCompile(`^([ \t]*)[*+-][ \t]+`)
	numberedSpacesRegex = regexp.MustCompile(`^([ \t]*)(\d+)\.[ \t]+`)
	numberedTightRegex  = regexp.MustCompile(`^([ \t]*)(\d+)\.([^\d\s.])`)
	quoteRegex          = regexp.MustCompile(`^> `)
	listItemRegex       = regexp.MustCompile(`^[ \t]*- `)
)

// Normalize cleans up model-generated Markdown so every stored document has
// the same shape regardless of which provider produced it.
//
// Normalize is idempotent: Normalize(Normalize(x, d), d) == Normalize(x, d).
// Fenced code blocks are left untouched apart from trailing whitespace.
func Normalize(text string, dialect Dialect) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	text = lineEndings.Replace(text)

	// Models sometimes nest the wrapper, and dropping an orphan fence can
	// expose another one, so peel until nothing changes.
	lines := strings.Split(text, "\n")
	for {
		n := len(lines)
		lines = dropOrphanFences(stripLeadingWrappers(lines))
		if len(lines) == n {
			break
		}
	}

	deepseek := dialect == DialectDeepSeek
	inCode := false
	for i, line := range lines {
		line = strings.TrimRight(line, " \t")
		if isFence(line) {
			inCode = toggleFence(inCode, line)
			lines[i] = line
			continue
		}
		if inCode {
			lines[i] = line
			continue
		}

		line = headingMarkerRegex.ReplaceAllString(line, "$1 $2")
		if deepseek && !headingRegex.MatchString(line) {
			line = bulletRegex.ReplaceAllString(line, "$1- ")
			line = numberedSpacesRegex.ReplaceAllString(line, "$1$2. ")
			line = numberedTightRegex.ReplaceAllString(line, "$1$2. $3")
			line = tightenEmphasis(line)
		}
		lines[i] = line
	}

	lines = ensureTitle(lines)
	lines = layout(lines, deepseek)

	return strings.Join(lines, "\n") + "\n"
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// stripLeadingWrappers drops blank lines and ```markdown openers from the top
// of the document and left-trims the first line that survives.
func stripLeadingWrappers(lines []string) []string {
	for len(lines) > 0 {
		first := strings.TrimLeft(lines[0], " \t")
		if first != "" && !wrapperFenceRegex.MatchString(first) {
			lines[0] = first
			return lines
		}
		lines = lines[1:]
	}
	return lines
}

func isFence(line string) bool {
	return fenceRegex.MatchString(line)
}

// toggleFence returns the code-block state after line. A fence opens a block
// when none is open; only a bare fence closes one.
func toggleFence(inCode bool, line string) bool {
	if !inCode {
		return true
	}
	return !bareFenceRegex.MatchString(line)
}

// dropOrphanFences removes a bare fence that opens a block nobody closes,
// which is how models usually terminate an echoed ```markdown wrapper.
func dropOrphanFences(lines []string) []string {
	inCode := false
	opener := -1
	for i, line := range lines {
		if !isFence(line) {
			continue
		}
		if !inCode {
			opener = i
		}
		inCode = toggleFence(inCode, line)
	}
	if !inCode || opener < 0 || !bareFenceRegex.MatchString(lines[opener]) {
		return lines
	}
	return append(lines[:opener:opener], lines[opener+1:]...)
}

// ensureTitle prefixes the first non-empty line with "# " when the document
// does not already open with a heading or a code block.
func ensureTitle(lines []string) []string {
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") || isFence(line) {
			return lines
		}
		lines[i] = "# " + strings.TrimLeft(line, " \t")
		return lines
	}
	return lines
}

// layout settles blank lines: at most one in a row, one before and after
// every heading, none at the edges of the document. The DeepSeek dialect also
// keeps list items contiguous and separates block quotes from prose.
func layout(lines []string, deepseek bool) []string {
	out := make([]string, 0, len(lines)+8)
	inCode := false
	afterHeading := false

	lastBlank := func() bool {
		return len(out) > 0 && out[len(out)-1] == ""
	}

	for _, line := range lines {
		if isFence(line) || inCode {
			if isFence(line) {
				if !inCode && afterHeading && !lastBlank() {
					out = append(out, "")
				}
				inCode = toggleFence(inCode, line)
			}
			afterHeading = false
			out = append(out, line)
			continue
		}

		if line == "" {
			if len(out) > 0 && !lastBlank() {
				out = append(out, "")
			}
			continue
		}

		switch {
		case headingRegex.MatchString(line):
			if len(out) > 0 && !lastBlank() {
				out = append(out, "")
			}
			out = append(out, line)
			afterHeading = true
			continue
		case afterHeading:
			if !lastBlank() {
				out = append(out, "")
			}
		case deepseek && listItemRegex.MatchString(line):
			n := len(out)
			if n >= 2 && out[n-1] == "" && listItemRegex.MatchString(out[n-2]) {
				out = out[:n-1]
			}
		case deepseek && quoteRegex.MatchString(line):
			if len(out) > 0 && !lastBlank() && !quoteRegex.MatchString(out[len(out)-1]) {
				out = append(out, "")
			}
		}
		afterHeading = false
		out = append(out, line)
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

// tightenEmphasis removes padding inside balanced **strong** and *emphasis*
// spans, e.g. "** key **" becomes "**key**".
//
// Tightening can expose new spans, so it repeats until the line stops
// shrinking.
func tightenEmphasis(line string) string {
	const strongMark = "\x00"
	if !strings.Contains(line, "*") || strings.Contains(line, strongMark) {
		return line
	}
	for {
		next := tightenSpans(line, "**")
		next = strings.ReplaceAll(next, "**", strongMark)
		next = tightenSpans(next, "*")
		next = strings.ReplaceAll(next, strongMark, "**")
		if next == line {
			return line
		}
		line = next
	}
}

func tightenSpans(line, marker string) string {
	parts := strings.Split(line, marker)
	// An even number of parts means an unbalanced marker; leave it alone.
	if len(parts) < 3 || len(parts)%2 == 0 {
		return line
	}
	for i := 1; i < len(parts); i += 2 {
		trimmed := strings.TrimSpace(parts[i])
		if trimmed != "" {
			parts[i] = trimmed
		}
	}
	return strings.Join(parts, marker)
}
