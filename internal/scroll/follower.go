package scroll

import (
	"strings"
	"sync"

	"github.com/cbegin/tabioke-go/internal/tab"
)

// VideoState is the discrete playback state reported by the video player.
type VideoState int

const (
	VideoStopped VideoState = iota
	VideoPlaying
	VideoPaused
	VideoEnded
)

func (s VideoState) String() string {
	switch s {
	case VideoPlaying:
		return "playing"
	case VideoPaused:
		return "paused"
	case VideoEnded:
		return "ended"
	default:
		return "stopped"
	}
}

// ParseVideoState maps a state name to a VideoState. Unknown names are
// reported as stopped.
func ParseVideoState(name string) (VideoState, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "playing":
		return VideoPlaying, true
	case "paused":
		return VideoPaused, true
	case "ended":
		return VideoEnded, true
	case "stopped":
		return VideoStopped, true
	}
	return VideoStopped, false
}

// Position is the result of one progress sample.
type Position struct {
	Offset   float64
	Progress float64
	Sample   Sample
}

type Options struct {
	// OnScroll is called after each sample that moved the viewport. It runs
	// on the caller's goroutine without the follower lock held.
	OnScroll func(Position)
}

// Follower turns playback progress samples into scroll offsets while the
// video plays. Anchors are re-derived from the text on every SetText.
type Follower struct {
	mu         sync.Mutex
	anchors    []tab.Anchor
	lines      int
	viewport   Viewport
	state      VideoState
	autoScroll bool
	last       Position
	onScroll   func(Position)
}

func NewFollower(vp Viewport, opts Options) *Follower {
	return &Follower{
		viewport:   vp,
		autoScroll: true,
		onScroll:   opts.OnScroll,
	}
}

func (f *Follower) SetText(text string) {
	anchors := tab.ExtractTimestamps(text)
	lines := 0
	if text != "" {
		lines = strings.Count(text, "\n") + 1
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anchors = anchors
	f.lines = lines
}

func (f *Follower) SetViewport(vp Viewport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewport = vp
}

// Viewport returns the viewport in use. An unset MaxScroll is derived from
// the line count of the current text.
func (f *Follower) Viewport() Viewport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewport.Fit(f.lines)
}

func (f *Follower) SetAutoScroll(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoScroll = enabled
}

func (f *Follower) Anchors() []tab.Anchor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tab.Anchor(nil), f.anchors...)
}

// Lines is the line count of the last text snapshot.
func (f *Follower) Lines() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines
}

func (f *Follower) State() VideoState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Follower) Last() Position {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *Follower) OnState(state VideoState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}

// OnProgress records a sample. The returned bool reports whether the
// viewport should move; it is false unless the video is playing with auto
// scroll enabled.
func (f *Follower) OnProgress(s Sample) (Position, bool) {
	f.mu.Lock()
	pos := Position{Progress: s.Fraction(), Sample: s, Offset: f.last.Offset}
	moved := f.state == VideoPlaying && f.autoScroll
	if moved {
		pos.Offset = Offset(f.anchors, s, f.viewport.Fit(f.lines))
	}
	f.last = pos
	cb := f.onScroll
	f.mu.Unlock()

	if moved && cb != nil {
		cb(pos)
	}
	return pos, moved
}
