package metronome

import (
	"math"
	"testing"
)

func TestBeatClockFourBeatsAtOneTwenty(t *testing.T) {
	c := NewBeatClock(Config{Tempo: 120, BeatsPerMeasure: 4, AccentFirstBeat: true})
	c.Start(10)
	beats := c.Schedule(11.99, 0)
	if len(beats) != 4 {
		t.Fatalf("scheduled %d beats, want 4", len(beats))
	}
	for i, b := range beats {
		if want := 10 + float64(i)*0.5; b.Time != want {
			t.Fatalf("beat %d time = %v, want %v", i, b.Time, want)
		}
		if b.Index != i || b.Number != i {
			t.Fatalf("beat %d = %+v", i, b)
		}
		if b.Accented != (i == 0) {
			t.Fatalf("beat %d accented = %v", i, b.Accented)
		}
	}
	if got := c.NextBeatTime(); got != 12 {
		t.Fatalf("next beat = %v, want start+2.0", got)
	}
}

func TestBeatClockNoDrift(t *testing.T) {
	for _, tempo := range []int{30, 97, 120, 133, 250} {
		c := NewBeatClock(Config{Tempo: tempo, BeatsPerMeasure: 7})
		c.Start(3.1)
		now := 3.1
		for i := 0; i < 20000; i++ {
			now += 0.025
			c.Schedule(now, DefaultLookahead)
		}
		n := c.TotalBeats()
		want := float64(n) * (60 / float64(tempo))
		if got := c.NextBeatTime() - c.StartTime(); math.Abs(got-want) > 1e-9 {
			t.Fatalf("tempo %d: next-start = %v, want %v after %d beats", tempo, got, want, n)
		}
		if c.NextBeatTime() != c.StartTime()+float64(n)*(60/float64(tempo)) {
			t.Fatalf("tempo %d: next beat not derived from start", tempo)
		}
	}
}

func TestBeatClockLookaheadWindow(t *testing.T) {
	c := NewBeatClock(Config{Tempo: 120, BeatsPerMeasure: 4})
	c.Start(0)
	if got := len(c.Schedule(0, 0.1)); got != 1 {
		t.Fatalf("first tick scheduled %d beats, want 1", got)
	}
	if got := len(c.Schedule(0.025, 0.1)); got != 0 {
		t.Fatalf("second tick scheduled %d beats, want 0", got)
	}
	beats := c.Schedule(0.41, 0.1)
	if len(beats) != 1 || beats[0].Time != 0.5 || beats[0].Index != 1 {
		t.Fatalf("beats = %+v, want beat 1 at 0.5", beats)
	}
}

func TestBeatClockMeasureWraps(t *testing.T) {
	c := NewBeatClock(Config{Tempo: 60, BeatsPerMeasure: 3, AccentFirstBeat: true})
	c.Start(0)
	beats := c.Schedule(6.5, 0)
	var idx []int
	for _, b := range beats {
		idx = append(idx, b.Index)
	}
	want := []int{0, 1, 2, 0, 1, 2, 0}
	if len(idx) != len(want) {
		t.Fatalf("indices = %v, want %v", idx, want)
	}
	for i := range want {
		if idx[i] != want[i] {
			t.Fatalf("indices = %v, want %v", idx, want)
		}
	}
	if !beats[3].Accented || beats[4].Accented {
		t.Fatalf("accent pattern wrong: %+v", beats)
	}
}

func TestBeatClockPauseResumeKeepsPhase(t *testing.T) {
	c := NewBeatClock(Config{Tempo: 120, BeatsPerMeasure: 4})
	c.Start(0)
	c.Schedule(0.7, 0) // beats at 0 and 0.5, next 1.0
	c.Pause(0.8)
	if c.State() != Paused {
		t.Fatalf("state = %v, want paused", c.State())
	}
	if beats := c.Schedule(5, 0); beats != nil {
		t.Fatalf("paused clock scheduled %v", beats)
	}
	c.Resume(10)
	if got := c.NextBeatTime(); math.Abs(got-10.2) > 1e-12 {
		t.Fatalf("next beat = %v, want 10.2", got)
	}
	if got := c.CurrentBeat(); got != 2 {
		t.Fatalf("current beat = %d, want 2", got)
	}
	if got := c.StartTime(); math.Abs(got-9.2) > 1e-12 {
		t.Fatalf("start = %v, want 9.2", got)
	}
	beats := c.Schedule(10.75, 0)
	if len(beats) != 2 || beats[0].Index != 2 || beats[1].Index != 3 {
		t.Fatalf("beats = %+v", beats)
	}
}

func TestBeatClockResumeWithoutPauseStarts(t *testing.T) {
	c := NewBeatClock(DefaultConfig())
	c.Resume(4)
	if c.State() != Playing || c.StartTime() != 4 || c.NextBeatTime() != 4 || c.TotalBeats() != 0 {
		t.Fatalf("resume from stopped = %+v", c.Status())
	}
	c.Schedule(5, 0)
	c.Resume(6)
	if c.StartTime() != 4 {
		t.Fatalf("resume while playing changed start to %v", c.StartTime())
	}
}

func TestBeatClockStopClears(t *testing.T) {
	c := NewBeatClock(DefaultConfig())
	c.Start(1)
	c.Schedule(3, 0)
	c.Pause(3)
	c.Stop()
	st := c.Status()
	if st.State != Stopped || st.TotalBeats != 0 || st.CurrentBeat != 0 || st.NextBeatTime != 0 || st.StartTime != 0 {
		t.Fatalf("status after stop = %+v", st)
	}
	c.Resume(9)
	if c.StartTime() != 9 {
		t.Fatalf("resume after stop should start fresh, start = %v", c.StartTime())
	}
}

func TestBeatClockTempoClamp(t *testing.T) {
	c := NewBeatClock(Config{Tempo: 5})
	if c.Tempo() != MinTempo {
		t.Fatalf("tempo = %d, want %d", c.Tempo(), MinTempo)
	}
	c.SetTempo(1000)
	if c.Tempo() != MaxTempo {
		t.Fatalf("tempo = %d, want %d", c.Tempo(), MaxTempo)
	}
	if c.BeatsPerMeasure() != 1 {
		t.Fatalf("beats per measure = %d, want 1", c.BeatsPerMeasure())
	}
}

func TestBeatClockTempoChangeKeepsPendingBeat(t *testing.T) {
	c := NewBeatClock(Config{Tempo: 120, BeatsPerMeasure: 4})
	c.Start(0)
	scheduled := c.Schedule(1.2, 0) // 0, 0.5, 1.0; next 1.5
	c.SetTempo(60)
	if got := c.NextBeatTime(); got != 1.5 {
		t.Fatalf("pending beat moved to %v", got)
	}
	if scheduled[2].Time != 1.0 {
		t.Fatalf("already scheduled beat changed")
	}
	beats := c.Schedule(3.6, 0)
	if len(beats) != 3 || beats[0].Time != 1.5 || beats[1].Time != 2.5 || beats[2].Time != 3.5 {
		t.Fatalf("beats after tempo change = %+v", beats)
	}
}

func TestBeatClockResetToBeat(t *testing.T) {
	c := NewBeatClock(Config{Tempo: 120, BeatsPerMeasure: 4, AccentFirstBeat: true})
	c.Start(0)
	c.Schedule(0.6, 0)
	c.ResetToBeat(0, 0.8)
	beats := c.Schedule(0.8, 0.01)
	if len(beats) != 1 || beats[0].Time != 0.8 || !beats[0].Accented {
		t.Fatalf("beats = %+v, want accented beat at 0.8", beats)
	}
	if got := c.NextBeatTime(); math.Abs(got-1.3) > 1e-12 {
		t.Fatalf("next = %v, want 1.3", got)
	}

	c.Pause(1)
	c.ResetToBeat(6, 1)
	c.Resume(4)
	beats = c.Schedule(4, 0.01)
	if len(beats) != 1 || beats[0].Time != 4 || beats[0].Index != 2 {
		t.Fatalf("beats after paused reset = %+v", beats)
	}
}

func TestBeatClockIgnoresNonFiniteClock(t *testing.T) {
	c := NewBeatClock(DefaultConfig())
	c.Start(0)
	if beats := c.Schedule(math.Inf(1), 0.1); beats != nil {
		t.Fatalf("infinite clock scheduled %d beats", len(beats))
	}
	if beats := c.Schedule(math.NaN(), 0.1); beats != nil {
		t.Fatalf("NaN clock scheduled %d beats", len(beats))
	}
}
