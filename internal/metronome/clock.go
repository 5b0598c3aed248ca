package metronome

import "math"

// BeatClock is the metronome state machine. Beat times are always derived
// from the start time and the number of beats scheduled so far, so they do
// not drift however many beats are produced.
type BeatClock struct {
	tempo           int
	beatsPerMeasure int
	beatUnit        int
	accentFirst     bool

	state     State
	start     float64
	total     int
	beat      int
	next      float64
	remainder float64
	resumable bool
}

func NewBeatClock(cfg Config) *BeatClock {
	c := &BeatClock{
		tempo:           ClampTempo(cfg.Tempo),
		beatsPerMeasure: clampBeats(cfg.BeatsPerMeasure),
		beatUnit:        cfg.BeatUnit,
		accentFirst:     cfg.AccentFirstBeat,
	}
	if c.beatUnit <= 0 {
		c.beatUnit = DefaultBeatUnit
	}
	return c
}

func (c *BeatClock) SecondsPerBeat() float64 { return 60 / float64(c.tempo) }

func (c *BeatClock) Start(now float64) {
	c.state = Playing
	c.total = 0
	c.beat = 0
	c.start = now
	c.next = now
	c.remainder = 0
	c.resumable = false
}

// Pause keeps the time left until the next beat so Resume can continue the
// measure where it stopped.
func (c *BeatClock) Pause(now float64) {
	if c.state != Playing {
		return
	}
	c.remainder = math.Max(0, c.next-now)
	c.resumable = true
	c.state = Paused
}

// Resume continues after a Pause. Without a recorded pause it starts fresh.
func (c *BeatClock) Resume(now float64) {
	switch {
	case c.state == Playing:
		return
	case c.state == Paused && c.resumable:
		c.next = now + c.remainder
		c.start = c.next - float64(c.total)*c.SecondsPerBeat()
		c.remainder = 0
		c.resumable = false
		c.state = Playing
	default:
		c.Start(now)
	}
}

func (c *BeatClock) Stop() {
	c.state = Stopped
	c.start = 0
	c.total = 0
	c.beat = 0
	c.next = 0
	c.remainder = 0
	c.resumable = false
}

// SetTempo clamps bpm and rebases the start time so the pending beat keeps
// its time and later beats use the new spacing.
func (c *BeatClock) SetTempo(bpm int) {
	c.tempo = ClampTempo(bpm)
	if c.state != Stopped {
		c.start = c.next - float64(c.total)*c.SecondsPerBeat()
	}
}

func (c *BeatClock) SetBeatsPerMeasure(n int) {
	c.beatsPerMeasure = clampBeats(n)
	c.beat %= c.beatsPerMeasure
}

func (c *BeatClock) SetBeatUnit(unit int) {
	if unit > 0 {
		c.beatUnit = unit
	}
}

func (c *BeatClock) SetAccentFirstBeat(on bool) { c.accentFirst = on }

// ResetToBeat makes beat the next one played. While playing it sounds now;
// while paused it sounds as soon as playback resumes.
func (c *BeatClock) ResetToBeat(beat int, now float64) {
	beat %= c.beatsPerMeasure
	if beat < 0 {
		beat += c.beatsPerMeasure
	}
	c.beat = beat
	switch c.state {
	case Playing:
		c.next = now
		c.start = now - float64(c.total)*c.SecondsPerBeat()
	case Paused:
		c.remainder = 0
	}
}

// Schedule emits every beat due before now+lookahead and advances the clock
// past them. Nothing is emitted unless the clock is playing.
func (c *BeatClock) Schedule(now, lookahead float64) []Beat {
	if c.state != Playing || math.IsNaN(now) || math.IsInf(now, 0) {
		return nil
	}
	var out []Beat
	for c.next < now+lookahead {
		out = append(out, Beat{
			Index:    c.beat,
			Number:   c.total,
			Time:     c.next,
			Accented: c.beat == 0 && c.accentFirst,
		})
		c.advance()
	}
	return out
}

func (c *BeatClock) advance() {
	c.total++
	c.next = c.start + float64(c.total)*c.SecondsPerBeat()
	c.beat = (c.beat + 1) % c.beatsPerMeasure
}

func (c *BeatClock) State() State          { return c.state }
func (c *BeatClock) Tempo() int            { return c.tempo }
func (c *BeatClock) BeatsPerMeasure() int  { return c.beatsPerMeasure }
func (c *BeatClock) BeatUnit() int         { return c.beatUnit }
func (c *BeatClock) AccentFirstBeat() bool { return c.accentFirst }
func (c *BeatClock) CurrentBeat() int      { return c.beat }
func (c *BeatClock) TotalBeats() int       { return c.total }
func (c *BeatClock) StartTime() float64    { return c.start }
func (c *BeatClock) NextBeatTime() float64 { return c.next }

func (c *BeatClock) Status() Status {
	return Status{
		State:           c.state,
		Tempo:           c.tempo,
		BeatsPerMeasure: c.beatsPerMeasure,
		BeatUnit:        c.beatUnit,
		AccentFirstBeat: c.accentFirst,
		CurrentBeat:     c.beat,
		TotalBeats:      c.total,
		StartTime:       c.start,
		NextBeatTime:    c.next,
	}
}
