package metronome

import "time"

const (
	MinTempo               = 30
	MaxTempo               = 250
	DefaultTempo           = 120
	DefaultBeatsPerMeasure = 4
	DefaultBeatUnit        = 4
	MaxBeatsPerMeasure     = 16

	// DefaultLookahead is how far past the audio clock beats are scheduled,
	// in seconds.
	DefaultLookahead    = 0.1
	DefaultTickInterval = 25 * time.Millisecond
)

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Beat is one scheduled click. Time is on the audio clock, in seconds.
type Beat struct {
	Index    int // position within the measure, 0-based
	Number   int // beats scheduled since start
	Time     float64
	Accented bool
}

type Config struct {
	Tempo           int
	BeatsPerMeasure int
	BeatUnit        int
	AccentFirstBeat bool
}

func DefaultConfig() Config {
	return Config{
		Tempo:           DefaultTempo,
		BeatsPerMeasure: DefaultBeatsPerMeasure,
		BeatUnit:        DefaultBeatUnit,
		AccentFirstBeat: true,
	}
}

// AudioClock reports monotonic time in seconds.
type AudioClock interface {
	Now() float64
}

// Sink receives beats in schedule order. It must not call back into the
// Runner that feeds it.
type Sink interface {
	ScheduleBeat(Beat)
}

type SinkFunc func(Beat)

func (f SinkFunc) ScheduleBeat(b Beat) { f(b) }

// Status is a point-in-time copy of the scheduler state.
type Status struct {
	State           State
	Tempo           int
	BeatsPerMeasure int
	BeatUnit        int
	AccentFirstBeat bool
	CurrentBeat     int
	TotalBeats      int
	StartTime       float64
	NextBeatTime    float64
}

// ClampTempo bounds bpm to [MinTempo, MaxTempo].
func ClampTempo(bpm int) int {
	if bpm < MinTempo {
		return MinTempo
	}
	if bpm > MaxTempo {
		return MaxTempo
	}
	return bpm
}

func clampBeats(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxBeatsPerMeasure {
		return MaxBeatsPerMeasure
	}
	return n
}

// WallClock is an AudioClock backed by the monotonic system clock, for use
// when no audio device drives timing.
type WallClock struct {
	origin time.Time
}

func NewWallClock() *WallClock { return &WallClock{origin: time.Now()} }

func (c *WallClock) Now() float64 { return time.Since(c.origin).Seconds() }
