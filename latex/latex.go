// Package latex pads LaTeX expressions with surrounding spaces so
// formulas render cleanly in chat frontends. Supported forms are
// $$...$$, $...$, \[...\] and \( ... \).
package latex

import (
	"regexp"
	"strings"
)

var (
	displayMath = regexp.MustCompile(`\$\$.*?\$\$`)
	bracketMath = regexp.MustCompile(`\\\[.*?\\\]`)
	parenMath   = regexp.MustCompile(`\\\(.*?\\\)`)
	inlineMath  = regexp.MustCompile(`\$[^$\n]*\$`)
)

// AddSpaces returns text with every detected LaTeX expression wrapped
// in single spaces.
func AddSpaces(text string) string {
	text = displayMath.ReplaceAllString(text, " ${0} ")
	text = padInline(text)
	text = bracketMath.ReplaceAllString(text, " ${0} ")
	text = parenMath.ReplaceAllString(text, " ${0} ")
	return text
}

// padInline wraps single-dollar expressions. RE2 has no lookaround, so
// matches that are really part of a $$...$$ span (empty body, or a
// dollar sign on either side) are skipped by inspecting the neighbors.
func padInline(text string) string {
	matches := inlineMath.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 2*len(matches))
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if end-start == 2 { // "$$" with an empty body
			continue
		}
		if start > 0 && text[start-1] == '$' {
			continue
		}
		if end < len(text) && text[end] == '$' {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteByte(' ')
		b.WriteString(text[start:end])
		b.WriteByte(' ')
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// Filter applies AddSpaces to assistant messages in a chat history,
// mirroring an outlet-style post-processing step. The zero value is
// disabled; use NewFilter for the enabled default.
type Filter struct {
	Enabled bool
}

func NewFilter() *Filter {
	return &Filter{Enabled: true}
}

// Outlet rewrites the content of every assistant message in place and
// returns the same slice.
func (f *Filter) Outlet(messages []map[string]any) []map[string]any {
	if !f.Enabled {
		return messages
	}
	for _, message := range messages {
		if role, _ := message["role"].(string); role != "assistant" {
			continue
		}
		if content, ok := message["content"].(string); ok {
			message["content"] = AddSpaces(content)
		}
	}
	return messages
}
