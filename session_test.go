package tabioke

import (
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	intmetro "github.com/cbegin/tabioke-go/internal/metronome"
	intscroll "github.com/cbegin/tabioke-go/internal/scroll"
	intstore "github.com/cbegin/tabioke-go/internal/store"
)

type stepClock struct {
	mu  sync.Mutex
	now float64
}

func (c *stepClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Set(t float64) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestSession(t *testing.T, opts ...SessionOption) (*Session, *stepClock, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	clock := &stepClock{}
	base := []SessionOption{
		WithAudioOutput(false),
		WithClock(clock),
		WithManualTicks(true),
		WithLogger(logrus.NewEntry(logger)),
		WithViewport(intscroll.Viewport{LineHeight: 20, Height: 60, MaxScroll: 1000}),
	}
	s, err := NewSession(append(base, opts...)...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock, hook
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

const sessionTab = `Title: Practice Song
Tempo: 96 bpm
Timing: 3/4
YouTubeOffset: 2.5

@0:00 [Intro]
e|---0---|
B|---1---|
@0:20 [Verse]
G C D`

func TestNewSessionRejectsBadSampleRate(t *testing.T) {
	if _, err := NewSession(WithAudioOutput(false), WithSampleRate(0)); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestSessionLoadTextAppliesMetadata(t *testing.T) {
	s, _, hook := newTestSession(t)
	events := s.Watch()
	doc := s.LoadText(sessionTab)
	if doc.Metadata["title"] != "Practice Song" {
		t.Fatalf("title = %q", doc.Metadata["title"])
	}
	if got := s.Tempo(); got != 96 {
		t.Fatalf("tempo = %d, want 96", got)
	}
	st := s.MetronomeStatus()
	if st.BeatsPerMeasure != 3 || st.BeatUnit != 4 {
		t.Fatalf("signature = %d/%d, want 3/4", st.BeatsPerMeasure, st.BeatUnit)
	}
	if got := s.VideoOffset(); got != 2.5 {
		t.Fatalf("offset = %v, want 2.5", got)
	}
	if len(s.Anchors()) != 2 {
		t.Fatalf("anchors = %v", s.Anchors())
	}
	if n := len(s.Lines()); n != 10 {
		t.Fatalf("classified lines = %d, want 10", n)
	}
	if got := countKind(drain(events), EventMetadataLoaded); got != 1 {
		t.Fatalf("metadata events = %d, want 1", got)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Message != "tab loaded" || entry.Data["session"] != s.ID() {
		t.Fatalf("last log entry = %+v", entry)
	}
}

func TestSessionScrollFollowsPlayback(t *testing.T) {
	s, _, _ := newTestSession(t, WithAutoStart(false))
	s.LoadText(sessionTab)
	events := s.Watch()

	pos := s.OnVideoProgress(10, 100)
	if pos.Offset != 0 {
		t.Fatalf("offset before play = %v, want 0", pos.Offset)
	}
	s.OnVideoState(intscroll.VideoPlaying, 0)
	pos = s.OnVideoProgress(10, 100)
	// Anchors on lines 5 and 8 sit a third of the way down a 60px view.
	if pos.Offset != 110 {
		t.Fatalf("offset = %v, want 110", pos.Offset)
	}
	if pos.Progress != 0.1 {
		t.Fatalf("progress = %v", pos.Progress)
	}
	pos = s.OnVideoProgress(40, 100)
	if pos.Offset != 140 {
		t.Fatalf("offset after last anchor = %v, want 140", pos.Offset)
	}
	s.OnVideoState(intscroll.VideoPaused, 40)
	if pos = s.OnVideoProgress(50, 100); pos.Offset != 140 {
		t.Fatalf("paused offset = %v, want unchanged 140", pos.Offset)
	}
	if got := countKind(drain(events), EventScroll); got != 2 {
		t.Fatalf("scroll events = %d, want 2", got)
	}
}

func TestSessionMetronomeWaitsForVideoOffset(t *testing.T) {
	s, clock, _ := newTestSession(t)
	s.LoadText(sessionTab)
	events := s.Watch()

	s.OnVideoState(intscroll.VideoPlaying, 0)
	if st := s.MetronomeStatus().State; st != intmetro.Stopped {
		t.Fatalf("state before offset = %v, want stopped", st)
	}
	s.OnVideoProgress(1, 100)
	if st := s.MetronomeStatus().State; st != intmetro.Stopped {
		t.Fatalf("state at 1s = %v, want stopped", st)
	}

	clock.Set(10)
	s.OnVideoProgress(2.5, 100)
	if st := s.MetronomeStatus().State; st != intmetro.Playing {
		t.Fatalf("state at offset = %v, want playing", st)
	}
	clock.Set(11)
	s.Tick()

	var beats []intmetro.Beat
	for _, ev := range drain(events) {
		if ev.Kind == EventBeat {
			beats = append(beats, ev.Beat)
		}
	}
	// 96 bpm: 0.625s per beat from t=10.
	if len(beats) != 2 || beats[0].Time != 10 || beats[1].Time != 10.625 {
		t.Fatalf("beats = %+v", beats)
	}
	if !beats[0].Accented || beats[1].Accented {
		t.Fatalf("accent pattern = %+v", beats)
	}

	s.OnVideoState(intscroll.VideoPaused, 3)
	if st := s.MetronomeStatus().State; st != intmetro.Paused {
		t.Fatalf("state after pause = %v", st)
	}
	s.OnVideoState(intscroll.VideoStopped, 0)
	if st := s.MetronomeStatus().State; st != intmetro.Stopped {
		t.Fatalf("state after stop = %v", st)
	}
}

func TestSessionScrollsWithConfigViewport(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	s, err := NewSession(
		WithAudioOutput(false),
		WithClock(&stepClock{}),
		WithManualTicks(true),
		WithLogger(logrus.NewEntry(logger)),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer s.Close()

	// 20px lines in a 600px viewport: 202 lines scroll at most 3440px.
	s.LoadText("@0:10 a\n" + strings.Repeat("x\n", 199) + "@1:30 b\nend")
	s.OnVideoState(intscroll.VideoPlaying, 0)
	var last float64
	for _, now := range []float64{10, 50, 90} {
		pos := s.OnVideoProgress(now, 100)
		if now > 10 && !(pos.Offset > last) {
			t.Fatalf("offset at %v = %v, did not advance past %v", now, pos.Offset, last)
		}
		last = pos.Offset
	}
	if last != 3440 {
		t.Fatalf("offset at 90s = %v, want 3440", last)
	}
}

func TestSessionPauseKeepsQueuedClicks(t *testing.T) {
	s, clock, _ := newTestSession(t, WithTempo(120), WithSampleRate(48000))
	s.clicks = true
	events := s.Watch()

	s.StartMetronome()
	clock.Set(0.45)
	s.Tick()
	if got := countKind(drain(events), EventBeat); got != 2 {
		t.Fatalf("beats reported = %d, want 2", got)
	}
	s.PauseMetronome()
	if got := s.click.PendingCount(); got != 2 {
		t.Fatalf("pending clicks after pause = %d, want 2", got)
	}

	// The beat at 0.5s was reported before the pause and still sounds.
	buf := make([]float32, 48000*2)
	s.click.Process(buf)
	var onset float64
	for _, v := range buf[24000*2 : 26400*2] {
		onset += math.Abs(float64(v))
	}
	if onset == 0 {
		t.Fatalf("no click rendered at 0.5s after pause")
	}

	s.ResumeMetronome()
	clock.Set(1.6)
	s.Tick()
	s.OnVideoState(intscroll.VideoStopped, 0)
	if st := s.MetronomeStatus().State; st != intmetro.Stopped {
		t.Fatalf("state after video stop = %v", st)
	}
	if got := s.click.PendingCount(); got != 0 {
		t.Fatalf("pending clicks after video stop = %d, want 0", got)
	}
}

func TestSessionPlaybackRateScalesTempo(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.SetTempo(100)
	s.OnPlaybackRate(0.75)
	if got := s.Tempo(); got != 75 {
		t.Fatalf("tempo at 0.75x = %d, want 75", got)
	}
	s.SetTempo(120)
	if got := s.Tempo(); got != 90 {
		t.Fatalf("new base tempo at 0.75x = %d, want 90", got)
	}
	s.OnPlaybackRate(4)
	if got := s.Tempo(); got != intmetro.MaxTempo {
		t.Fatalf("tempo = %d, want clamp to %d", got, intmetro.MaxTempo)
	}
}

func TestSessionManualMetronomeControls(t *testing.T) {
	s, clock, _ := newTestSession(t, WithTempo(60), WithBeatsPerMeasure(2))
	events := s.Watch()
	s.StartMetronome()
	clock.Set(2.5)
	s.Tick()
	s.PauseMetronome()
	clock.Set(7)
	s.ResumeMetronome()
	st := s.MetronomeStatus()
	if st.State != intmetro.Playing || st.NextBeatTime != 7.5 {
		t.Fatalf("status after resume = %+v, want next beat at 7.5", st)
	}
	s.StopMetronome()

	evs := drain(events)
	if got := countKind(evs, EventBeat); got != 3 {
		t.Fatalf("beats = %d, want 3", got)
	}
	if got := countKind(evs, EventMetronomeState); got < 4 {
		t.Fatalf("state events = %d, want at least 4", got)
	}
}

func TestSessionTapTempo(t *testing.T) {
	s, _, _ := newTestSession(t)
	t0 := time.Unix(1000, 0)
	if _, ok := s.tapAt(t0); ok {
		t.Fatalf("single tap should not set a tempo")
	}
	bpm, ok := s.tapAt(t0.Add(500 * time.Millisecond))
	if !ok || bpm != 120 {
		t.Fatalf("tap = %d, %v, want 120", bpm, ok)
	}
	if got := s.Tempo(); got != 120 {
		t.Fatalf("tempo = %d", got)
	}
}

func TestSessionFormat(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.LoadText("[Verse]\n\n\n\nG C\ne|---|\n[Chorus]")
	got := s.Format()
	want := "[Verse]\n\nG C\ne|---|\n\n\n[Chorus]"
	if got != want {
		t.Fatalf("format = %q, want %q", got, want)
	}
	if s.Text() != want {
		t.Fatalf("text not replaced: %q", s.Text())
	}
}

func TestSessionPersistsSettings(t *testing.T) {
	st, err := intstore.Open(filepath.Join(t.TempDir(), "session.sqlite3"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	first, _, _ := newTestSession(t, WithStore(st))
	first.LoadText(sessionTab)
	first.SetAccentFirstBeat(false)
	first.SetSyncTempo(false)
	first.Close()

	if v, err := st.Get(intstore.KeyTimeSignature); err != nil || v != "3/4" {
		t.Fatalf("stored signature = %q, %v", v, err)
	}

	second, _, _ := newTestSession(t, WithStore(st))
	if second.Text() != sessionTab {
		t.Fatalf("saved tab not restored: %q", second.Text())
	}
	status := second.MetronomeStatus()
	if status.Tempo != 96 || status.BeatsPerMeasure != 3 {
		t.Fatalf("restored status = %+v", status)
	}
	if status.AccentFirstBeat {
		t.Fatalf("accent setting not restored")
	}
	second.OnPlaybackRate(2)
	if got := second.Tempo(); got != 96 {
		t.Fatalf("tempo sync should stay off, tempo = %d", got)
	}
}

func TestParseSignature(t *testing.T) {
	cases := []struct {
		in          string
		beats, unit int
		ok          bool
	}{
		{"4/4", 4, 4, true},
		{" 6/8 ", 6, 8, true},
		{"17/4", 0, 0, false},
		{"3", 0, 0, false},
		{"x/4", 0, 0, false},
	}
	for _, tc := range cases {
		b, u, ok := parseSignature(tc.in)
		if b != tc.beats || u != tc.unit || ok != tc.ok {
			t.Fatalf("parseSignature(%q) = %d, %d, %v", tc.in, b, u, ok)
		}
	}
}
