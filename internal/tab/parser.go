package tab

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var headerFieldPattern = regexp.MustCompile(`^([A-Za-z]+):\s*(.*)$`)

type Parser struct {
	cfg  ParserConfig
	keys map[string]struct{}
}

func NewParser(cfg ParserConfig) *Parser {
	keys := make(map[string]struct{}, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys[strings.ToLower(k)] = struct{}{}
	}
	return &Parser{cfg: cfg, keys: keys}
}

// Parse splits raw text into header metadata and body. Header mode lasts
// until the first non-blank line that is not a recognized "Key: value"
// field; that line and everything after it is body, unmodified.
func Parse(raw string) Document {
	return NewParser(DefaultParserConfig()).Parse(raw)
}

func (p *Parser) Parse(raw string) Document {
	doc := Document{Metadata: map[string]string{}}
	if raw == "" {
		return doc
	}
	lower := cases.Lower(language.Und)
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		m := headerFieldPattern.FindStringSubmatch(trimmed)
		if m == nil {
			doc.Body = strings.Join(lines[i:], "\n")
			return doc
		}
		key := lower.String(m[1])
		value := strings.TrimSpace(m[2])
		if _, ok := p.keys[key]; !ok || value == "" {
			doc.Body = strings.Join(lines[i:], "\n")
			return doc
		}
		if key == KeyChords {
			if !addChordEntries(doc.Metadata, value) {
				doc.Body = strings.Join(lines[i:], "\n")
				return doc
			}
			continue
		}
		doc.Metadata[key] = value
	}
	return doc
}

// addChordEntries appends the ';'-separated entries of one chords header
// line to the newline-joined chords value. It reports false, leaving meta
// alone, when the line holds no entries.
func addChordEntries(meta map[string]string, value string) bool {
	var (
		entries []string
		added   int
	)
	if prev, ok := meta[KeyChords]; ok && prev != "" {
		entries = strings.Split(prev, "\n")
	}
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			entries = append(entries, part)
			added++
		}
	}
	if added == 0 {
		return false
	}
	meta[KeyChords] = strings.Join(entries, "\n")
	return true
}
