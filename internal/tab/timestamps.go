package tab

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var timestampPattern = regexp.MustCompile(`@(\d{1,2}):(\d{2})(?::(\d{2}))?`)

// ExtractTimestamps collects every timestamp of every line of body as an
// anchor on that line, sorted by time. Anchors with equal times keep their
// text order and are not deduplicated.
func ExtractTimestamps(body string) []Anchor {
	var anchors []Anchor
	for i, line := range strings.Split(body, "\n") {
		for _, ts := range timestampSpans(line) {
			anchors = append(anchors, Anchor{Time: ts.Seconds, Line: i})
		}
	}
	sort.SliceStable(anchors, func(a, b int) bool {
		return anchors[a].Time < anchors[b].Time
	})
	return anchors
}

func timestampSpans(line string) []TimestampSpan {
	matches := timestampPattern.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]TimestampSpan, 0, len(matches))
	for _, m := range matches {
		first := atoiSpan(line, m[2], m[3])
		second := atoiSpan(line, m[4], m[5])
		var seconds int
		if m[6] >= 0 {
			seconds = first*3600 + second*60 + atoiSpan(line, m[6], m[7])
		} else {
			seconds = first*60 + second
		}
		out = append(out, TimestampSpan{Start: m[0], End: m[1], Seconds: float64(seconds)})
	}
	return out
}

func atoiSpan(s string, start, end int) int {
	if start < 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[start:end])
	return n
}
