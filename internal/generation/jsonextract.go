package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
)

var (
	fencedJSONRegex    = regexp.MustCompile("\x60\x60\x60json\\s*([\\s\\S]*?)\\s*\x60\x60\x60")
	bareObjectRegex    = regexp.MustCompile(`\{[\s\S]*\}`)
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)
)

var requiredOutlineKeys = []string{"titolo", "descrizione", "capitoli"}

// ExtractJSON returns the JSON object embedded in a model reply: the body of
// a ```json fence if present, otherwise the outermost {...} span.
func ExtractJSON(text string) (string, error) {
	if m := fencedJSONRegex.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	if m := bareObjectRegex.FindString(text); m != "" {
		return m, nil
	}
	return "", fmt.Errorf("%w: reply contains no JSON object", ErrInvalidResponse)
}

// ParseOutline extracts, repairs and validates an outline from a model reply.
// Line comments are removed before parsing; if the result still does not
// parse, trailing commas are removed as well.
func ParseOutline(text string) (*domain.Outline, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	cleaned := stripLineComments(raw)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		cleaned = trailingCommaRegex.ReplaceAllString(cleaned, "$1")
		if err2 := json.Unmarshal([]byte(cleaned), &fields); err2 != nil {
			return nil, fmt.Errorf("%w: outline JSON does not parse: %v", ErrInvalidResponse, err)
		}
	}

	for _, key := range requiredOutlineKeys {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("%w: outline is missing %q", ErrInvalidResponse, key)
		}
	}

	var outline domain.Outline
	if err := json.Unmarshal([]byte(cleaned), &outline); err != nil {
		return nil, fmt.Errorf("%w: outline has unexpected shape: %v", ErrInvalidResponse, err)
	}
	outline.Normalize()
	if err := outline.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &outline, nil
}

// stripLineComments removes // comments that start outside string literals.
func stripLineComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '/' {
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
