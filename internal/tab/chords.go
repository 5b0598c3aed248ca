package tab

import (
	"regexp"
	"strings"
	"unicode"
)

const DefaultStringCount = 6

var (
	tuningSeparators = regexp.MustCompile(`[\s-]+`)
	tuningNote       = regexp.MustCompile(`[A-Ga-g][#b♯♭]?`)
)

// ParseChordShapes reads newline-separated "Name - Frets - Fingering"
// entries. Entries without a name or frets are dropped.
func ParseChordShapes(value string) []ChordShape {
	var out []ChordShape
	for _, line := range strings.Split(value, "\n") {
		parts := strings.Split(line, "-")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		shape := ChordShape{Name: parts[0]}
		if len(parts) > 1 {
			shape.Frets = parts[1]
		}
		if len(parts) > 2 {
			shape.Fingering = parts[2]
		}
		if shape.Name == "" || shape.Frets == "" {
			continue
		}
		out = append(out, shape)
	}
	return out
}

// Positions returns one fret per string; -1 marks a muted string and
// unreadable symbols.
func (c ChordShape) Positions() []int {
	out := make([]int, 0, len(c.Frets))
	for _, r := range c.Frets {
		if r >= '0' && r <= '9' {
			out = append(out, int(r-'0'))
			continue
		}
		out = append(out, -1)
	}
	return out
}

// BaseFret is the first fret a diagram should show: 1 when every fretted
// note fits in the first four frets, otherwise the lowest fretted note.
func (c ChordShape) BaseFret() int {
	lo, hi := 0, 0
	for _, f := range c.Positions() {
		if f <= 0 {
			continue
		}
		if lo == 0 || f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
	}
	if hi <= 4 {
		return 1
	}
	return lo
}

// Fingers returns the finger label per string, "" for open or muted.
func (c ChordShape) Fingers() []string {
	if c.Fingering == "" {
		return nil
	}
	out := make([]string, 0, len(c.Fingering))
	for _, r := range c.Fingering {
		if r == '0' || r == 'x' || r == 'X' {
			out = append(out, "")
			continue
		}
		out = append(out, string(unicode.ToUpper(r)))
	}
	return out
}

func ParseStrumming(pattern string) []Stroke {
	out := make([]Stroke, 0, len(pattern))
	for _, r := range pattern {
		s := Stroke{Symbol: r}
		switch {
		case unicode.ToUpper(r) == 'D':
			s.Kind = StrokeDown
		case unicode.ToUpper(r) == 'U':
			s.Kind = StrokeUp
		case unicode.ToUpper(r) == 'B':
			s.Kind = StrokeBass
		case unicode.ToUpper(r) == 'R':
			s.Kind = StrokeRoot
		case r == '-' || r == ' ':
			s.Kind = StrokeRest
		case r == '_':
			s.Kind = StrokeSkip
		case r >= '1' && r <= '6':
			s.Kind = StrokeString
			s.String = int(r - '0')
		}
		out = append(out, s)
	}
	return out
}

// StringCount infers the number of strings from a tuning such as
// "E A D G B E", "D-A-D-G-A-D" or "EADGBE".
func StringCount(tuning string) int {
	tuning = strings.TrimSpace(tuning)
	if tuning == "" {
		return DefaultStringCount
	}
	if strings.ContainsAny(tuning, " -") {
		n := 0
		for _, p := range tuningSeparators.Split(tuning, -1) {
			if p != "" {
				n++
			}
		}
		if n == 0 {
			return DefaultStringCount
		}
		return n
	}
	if n := len(tuningNote.FindAllString(tuning, -1)); n > 0 {
		return n
	}
	return DefaultStringCount
}
