package tab

import "strings"

// StringsPerTab is the number of consecutive tablature lines grouped
// together before the formatter separates them.
const StringsPerTab = 6

// Format normalizes blank-line spacing. Existing blank lines are dropped and
// separators are re-inserted from the classification of each line and its
// predecessor, so formatting formatted text changes nothing.
func Format(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	out := make([]string, 0, len(lines)*2)
	var prev Classification
	tabRun := 0
	for i, line := range lines {
		cur := Classify(line)
		first := i == 0
		switch {
		case cur.HasTimestamp() && !first && prev.Category != CategorySection:
			out = append(out, "")
			tabRun = 0
		case cur.Category == CategorySection && !first:
			out = append(out, "", "")
			tabRun = 0
		case cur.Category == CategoryChord && !first && prev.Category != CategoryChord:
			out = append(out, "")
			tabRun = 0
		case cur.Category == CategoryTablature:
			if !first {
				prevTab := prev.Category == CategoryTablature
				if !prevTab && prev.Category != CategoryChord {
					out = append(out, "")
					tabRun = 0
				} else if prevTab && tabRun >= StringsPerTab {
					out = append(out, "")
					tabRun = 0
				}
			}
			tabRun++
		default:
			tabRun = 0
		}
		out = append(out, line)
		prev = cur
	}
	return strings.Join(out, "\n")
}
