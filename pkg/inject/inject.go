// Package inject splices rendered remediation blocks into fragment text. Every
// function is a pure string transform; none of them parse the fragment beyond
// splitting it into lines.
package inject

import (
	"regexp"
	"sort"
	"strings"
)

// Span is a half-open byte range of a fragment
type Span struct {
	Start int
	End   int
}

// Lines splits text on line feeds, keeping empty trailing lines
func Lines(text string) []string {
	return strings.Split(text, "\n")
}

// Join is the inverse of Lines
func Join(lines []string) string {
	return strings.Join(lines, "\n")
}

// Indent prefixes every non-blank line of block with prefix
func Indent(block, prefix string) string {
	if prefix == "" {
		return block
	}
	lines := Lines(block)
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		}
	}
	return Join(lines)
}

// LeadingWhitespace returns the indentation of line
func LeadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// ReplaceSpans substitutes block for every span. Spans are applied from the
// end of the text backwards; overlapping or out-of-range spans are skipped.
// Continuation lines of the block are indented like the line the span starts on.
func ReplaceSpans(text string, spans []Span, block string) string {
	if len(spans) == 0 {
		return text
	}

	ordered := append([]Span(nil), spans...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var kept []Span
	last := -1
	for _, s := range ordered {
		if s.Start < 0 || s.End > len(text) || s.Start > s.End || s.Start < last {
			continue
		}
		kept = append(kept, s)
		last = s.End
	}

	out := text
	for i := len(kept) - 1; i >= 0; i-- {
		s := kept[i]
		lineStart := strings.LastIndex(out[:s.Start], "\n") + 1
		indent := LeadingWhitespace(out[lineStart:s.Start])
		out = out[:s.Start] + indentTail(block, indent) + out[s.End:]
	}
	return out
}

func indentTail(block, indent string) string {
	first, rest, found := strings.Cut(block, "\n")
	if !found {
		return block
	}
	return first + "\n" + Indent(rest, indent)
}

// Prepend places block on its own lines ahead of text
func Prepend(text, block string) string {
	if block == "" {
		return text
	}
	return block + "\n" + text
}

// InsertBeforeFirst inserts block as new lines immediately before the first
// line containing any of tokens. Only that one line is considered; the second
// return value reports whether an insertion point was found.
func InsertBeforeFirst(text string, tokens []string, block string) (string, bool) {
	i := FirstLineContaining(text, tokens)
	if i < 0 {
		return text, false
	}
	return InsertBefore(text, i, block), true
}

// FirstLineContaining returns the index of the first line containing any of
// tokens, or -1
func FirstLineContaining(text string, tokens []string) int {
	for i, line := range Lines(text) {
		if containsAny(line, tokens) {
			return i
		}
	}
	return -1
}

// InsertBefore inserts block ahead of line i, indented like that line. An
// index past the last line appends the block.
func InsertBefore(text string, i int, block string) string {
	lines := Lines(text)
	if i < 0 {
		i = 0
	}
	if i >= len(lines) {
		return Join(append(lines, block))
	}
	return insertAt(lines, i, Indent(block, LeadingWhitespace(lines[i])))
}

// InsertValidation inserts block once: after the first line matching decl, or,
// if a line containing one of keywords comes first, immediately before that
// line. Scanning stops at the first qualifying line.
func InsertValidation(text string, decl *regexp.Regexp, keywords []string, block string) (string, bool) {
	lines := Lines(text)
	for i, line := range lines {
		if decl.MatchString(line) {
			indent := LeadingWhitespace(line) + "    "
			return insertAt(lines, i+1, Indent(block, indent)), true
		}
		if containsAny(line, keywords) {
			return insertAt(lines, i, Indent(block, LeadingWhitespace(line))), true
		}
	}
	return text, false
}

func insertAt(lines []string, i int, block string) string {
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:i]...)
	out = append(out, block)
	out = append(out, lines[i:]...)
	return Join(out)
}

func containsAny(line string, tokens []string) bool {
	for _, tok := range tokens {
		if tok != "" && strings.Contains(line, tok) {
			return true
		}
	}
	return false
}
