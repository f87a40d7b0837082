package usecase

import (
	"errors"
	"regexp"
	"strings"

	"github.com/clauseq/clauseq/internal/core/domain"
)

var errNoBraces = errors.New("response contains no '{...}' block")

// Text-repair pipeline for generator output. The upstream model promises a
// single-line JSON object but routinely breaks that promise with markdown
// fences, embedded newlines, invalid escapes, and trailing commas. Each step
// is a pure function so the stages stay independently testable.

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// repairJSON runs the full repair chain and returns a parseable candidate.
// The only error it can return wraps domain.ErrNoJSONFound.
func repairJSON(raw string) (string, error) {
	s := stripCodeFences(raw)
	s, err := extractJSONSpan(s)
	if err != nil {
		return "", err
	}
	s = repairInvalidEscapes(s)
	s = flattenNewlines(s)
	s = stripTrailingCommas(s)
	return s, nil
}

// stripCodeFences removes a leading and/or trailing markdown fence line.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// extractJSONSpan returns the greedy substring from the first '{' to the
// last '}'.
func extractJSONSpan(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", domain.WrapError(domain.ErrNoJSONFound, "extract json span", errNoBraces)
	}
	return s[start : end+1], nil
}

// repairInvalidEscapes drops any backslash not opening a valid JSON escape
// sequence. A double backslash is a valid sequence and survives intact.
func repairInvalidEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && isJSONEscapable(s[i+1]) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		// invalid escape: drop the backslash, keep what follows
	}
	return b.String()
}

func isJSONEscapable(c byte) bool {
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
		return true
	default:
		return false
	}
}

// flattenNewlines replaces literal newlines with single spaces; the format
// contract forbids them but the generator emits them anyway.
func flattenNewlines(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// stripTrailingCommas removes commas immediately preceding '}' or ']'.
func stripTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}
