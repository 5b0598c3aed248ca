package tab

import (
	"regexp"
	"strings"
)

var (
	metadataLinePattern = regexp.MustCompile(`(?i)^(Title|Artist|Album|Tempo|Timing|YouTubeURL|YouTubeOffset|Capo|Tuning|Key):\s*.*`)
	sectionPattern      = regexp.MustCompile(`^\[.+\]`)
	tablaturePattern    = regexp.MustCompile(`^[A-Za-z]?\|`)
	chordTokenPattern   = regexp.MustCompile(`^[A-G][#b♯♭]?(m|M|maj|min|dim|aug|sus|add|dom)?[0-9]*(/[A-G][#b♯♭]?)?$`)
)

// Classify assigns exactly one category to a line and reports its comment
// and timestamp spans. Metadata lines are never split at "//"; for every
// other line the category is decided on the text before the comment.
func Classify(line string) Classification {
	c := Classification{Timestamps: timestampSpans(line)}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		c.Category = CategoryBlank
		return c
	}
	if metadataLinePattern.MatchString(trimmed) {
		c.Category = CategoryMetadata
		return c
	}
	content := line
	if i := strings.Index(line, "//"); i >= 0 {
		c.Comment = &CommentSpan{Start: i}
		content = line[:i]
	}
	c.Category = categorize(strings.TrimSpace(content))
	return c
}

func categorize(trimmed string) Category {
	switch {
	case trimmed == "":
		return CategoryBlank
	case sectionPattern.MatchString(trimmed):
		return CategorySection
	case tablaturePattern.MatchString(trimmed) && strings.Contains(trimmed, "-"):
		return CategoryTablature
	case IsChordLine(trimmed):
		return CategoryChord
	default:
		return CategoryLyric
	}
}

// IsChordLine reports whether every whitespace-separated token is a chord
// symbol. A line without tokens is not a chord line.
func IsChordLine(s string) bool {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if !chordTokenPattern.MatchString(tok) {
			return false
		}
	}
	return true
}

// Lines classifies each line of text independently.
func Lines(text string) []Classification {
	lines := strings.Split(text, "\n")
	out := make([]Classification, len(lines))
	for i, line := range lines {
		out[i] = Classify(line)
	}
	return out
}

// Style is the render style of the non-comment part of the line. A
// timestamp there overrides the category.
func (c Classification) Style() Style {
	for _, ts := range c.Timestamps {
		if c.Comment == nil || ts.Start < c.Comment.Start {
			return StyleTimestamp
		}
	}
	return Style(c.Category)
}

// Spans splits line into styled ranges using its classification c.
func (c Classification) Spans(line string) []Span {
	if line == "" {
		return nil
	}
	if c.Comment == nil {
		return []Span{{Start: 0, End: len(line), Style: c.Style()}}
	}
	var out []Span
	if c.Comment.Start > 0 {
		out = append(out, Span{Start: 0, End: c.Comment.Start, Style: c.Style()})
	}
	return append(out, Span{Start: c.Comment.Start, End: len(line), Style: StyleComment})
}
