package scroll

import (
	"math"

	"github.com/cbegin/tabioke-go/internal/tab"
)

// Viewport describes the scrolled text area in pixels.
type Viewport struct {
	LineHeight float64
	Height     float64
	MaxScroll  float64
}

// Fit fills in MaxScroll from the content size when it is unset: the text
// is lines*LineHeight tall and the last Height pixels are always visible.
func (vp Viewport) Fit(lines int) Viewport {
	if vp.MaxScroll > 0 || lines <= 0 || !finite(vp.LineHeight) || !finite(vp.Height) {
		return vp
	}
	vp.MaxScroll = math.Max(0, float64(lines)*vp.LineHeight-vp.Height)
	return vp
}

// Sample is one playback progress report in seconds.
type Sample struct {
	CurrentTime float64
	Duration    float64
}

// Fraction returns playback progress in [0, 1].
func (s Sample) Fraction() float64 {
	if !finite(s.CurrentTime) || !finite(s.Duration) || s.Duration <= 0 {
		return 0
	}
	return clamp(s.CurrentTime/s.Duration, 0, 1)
}

// LineHeightFor derives the per-line height from the total content height.
func LineHeightFor(contentHeight float64, lines int) float64 {
	if lines <= 0 || !finite(contentHeight) || contentHeight <= 0 {
		return 0
	}
	return contentHeight / float64(lines)
}

// Offset maps a playback sample to a scroll offset. Without anchors the
// offset follows progress linearly. With anchors it interpolates between
// the bracketing anchors, each placed a third of the way down the viewport,
// and freezes after the last one. The result is clamped to [0, MaxScroll].
func Offset(anchors []tab.Anchor, s Sample, vp Viewport) float64 {
	if !finite(s.CurrentTime) || !finite(s.Duration) || s.Duration <= 0 {
		return 0
	}
	if !finite(vp.MaxScroll) || vp.MaxScroll <= 0 {
		return 0
	}
	now := s.CurrentTime
	if len(anchors) == 0 {
		return clamp(vp.MaxScroll*(now/s.Duration), 0, vp.MaxScroll)
	}

	i, j := bracket(anchors, now)
	current := tab.Anchor{}
	if i >= 0 {
		current = anchors[i]
	}
	targetCurrent := target(current, vp)
	if j < 0 {
		return clamp(targetCurrent, 0, vp.MaxScroll)
	}
	next := anchors[j]
	var t float64
	if span := next.Time - current.Time; span > 0 {
		t = (now - current.Time) / span
	}
	offset := targetCurrent + (target(next, vp)-targetCurrent)*t
	return clamp(offset, 0, vp.MaxScroll)
}

// bracket returns the index of the last anchor at or before now and the
// first anchor after it, -1 when absent. anchors must be sorted by time.
func bracket(anchors []tab.Anchor, now float64) (int, int) {
	i, j := -1, -1
	for k, a := range anchors {
		if a.Time <= now {
			i = k
			continue
		}
		j = k
		break
	}
	return i, j
}

func target(a tab.Anchor, vp Viewport) float64 {
	return float64(a.Line)*vp.LineHeight - vp.Height/3
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
