package click

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cbegin/tabioke-go/internal/metronome"
)

type Params struct {
	AccentFreq float64
	NormalFreq float64
	AccentGain float64
	NormalGain float64
	// Decay is the time for a click to fall to Floor.
	Decay      time.Duration
	Floor      float64
	MasterGain float64
}

func DefaultParams() Params {
	return Params{
		AccentFreq: 1000,
		NormalFreq: 800,
		AccentGain: 0.5,
		NormalGain: 0.3,
		Decay:      50 * time.Millisecond,
		Floor:      0.001,
		MasterGain: 1,
	}
}

type voice struct {
	start  int64 // absolute frame
	length int
	age    int
	phase  float64
	step   float64 // radians per frame
	amp    float64
	ratio  float64 // per-frame amplitude multiplier
}

// Engine renders scheduled beats as decaying sine clicks. Its rendered
// frame count is the audio clock the metronome schedules against.
type Engine struct {
	mu         sync.Mutex
	sampleRate int
	params     Params
	masterGain float64
	frame      int64
	pending    []voice
	active     []voice
}

func New(sampleRate int, params Params) *Engine {
	if params.Decay <= 0 {
		params.Decay = DefaultParams().Decay
	}
	if params.Floor <= 0 {
		params.Floor = DefaultParams().Floor
	}
	return &Engine{
		sampleRate: sampleRate,
		params:     params,
		masterGain: params.MasterGain,
	}
}

// Now returns the time of the next frame to be rendered, in seconds.
func (e *Engine) Now() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.frame) / float64(e.sampleRate)
}

func (e *Engine) SampleRate() int { return e.sampleRate }

// ScheduleBeat queues a click at b.Time. Beats already in the past sound
// on the next rendered frame.
func (e *Engine) ScheduleBeat(b metronome.Beat) {
	freq, gain := e.params.NormalFreq, e.params.NormalGain
	if b.Accented {
		freq, gain = e.params.AccentFreq, e.params.AccentGain
	}
	if gain <= 0 {
		return
	}
	sr := float64(e.sampleRate)
	length := int(e.params.Decay.Seconds() * sr)
	if length < 1 {
		length = 1
	}
	v := voice{
		length: length,
		step:   2 * math.Pi * freq / sr,
		amp:    gain,
		ratio:  math.Pow(e.params.Floor/gain, 1/float64(length)),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	v.start = int64(math.Round(b.Time * sr))
	if v.start < e.frame {
		v.start = e.frame
	}
	i := sort.Search(len(e.pending), func(i int) bool { return e.pending[i].start > v.start })
	e.pending = append(e.pending, voice{})
	copy(e.pending[i+1:], e.pending[i:])
	e.pending[i] = v
}

// Process renders interleaved stereo frames into dst.
func (e *Engine) Process(dst []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i+1 < len(dst); i += 2 {
		for len(e.pending) > 0 && e.pending[0].start <= e.frame {
			e.active = append(e.active, e.pending[0])
			e.pending = e.pending[1:]
		}
		var s float64
		live := e.active[:0]
		for _, v := range e.active {
			s += v.amp * math.Sin(v.phase)
			v.phase += v.step
			v.amp *= v.ratio
			v.age++
			if v.age < v.length {
				live = append(live, v)
			}
		}
		e.active = live
		out := float32(s * e.masterGain)
		dst[i] = out
		dst[i+1] = out
		e.frame++
	}
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.masterGain = gain
}

func (e *Engine) ActiveVoiceCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Reset drops queued and sounding clicks. The clock keeps running.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = nil
	e.active = nil
}
