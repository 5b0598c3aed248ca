package tabioke

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	intclick "github.com/cbegin/tabioke-go/internal/click"
	intmetro "github.com/cbegin/tabioke-go/internal/metronome"
)

// ClickConfig describes an offline click track.
type ClickConfig struct {
	Tempo           int
	BeatsPerMeasure int
	BeatUnit        int
	AccentFirstBeat bool
	SampleRate      int
	// Lookahead and TickInterval mirror the live scheduler; zero means the
	// metronome defaults.
	Lookahead    time.Duration
	TickInterval time.Duration
}

func DefaultClickConfig() ClickConfig {
	return ClickConfig{
		Tempo:           intmetro.DefaultTempo,
		BeatsPerMeasure: intmetro.DefaultBeatsPerMeasure,
		BeatUnit:        intmetro.DefaultBeatUnit,
		AccentFirstBeat: true,
		SampleRate:      48000,
	}
}

func (c ClickConfig) metronome() intmetro.Config {
	return intmetro.Config{
		Tempo:           c.Tempo,
		BeatsPerMeasure: c.BeatsPerMeasure,
		BeatUnit:        c.BeatUnit,
		AccentFirstBeat: c.AccentFirstBeat,
	}
}

// RenderClickTrack renders seconds of metronome clicks as interleaved
// stereo. Beats are scheduled tick by tick against the engine's own frame
// clock, as during live playback.
func RenderClickTrack(cfg ClickConfig, seconds float64) []float32 {
	if cfg.SampleRate <= 0 || !(seconds > 0) {
		return nil
	}
	engine := intclick.New(cfg.SampleRate, intclick.DefaultParams())
	runner := intmetro.NewRunner(cfg.metronome(), engine, engine, intmetro.RunnerOptions{
		Lookahead:    cfg.Lookahead.Seconds(),
		TickInterval: cfg.TickInterval,
		Manual:       true,
	})
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = intmetro.DefaultTickInterval
	}
	chunk := int(interval.Seconds() * float64(cfg.SampleRate))
	if chunk < 1 {
		chunk = 1
	}

	frames := int(float64(cfg.SampleRate) * seconds)
	out := make([]float32, frames*2)
	runner.Start()
	for off := 0; off < frames; off += chunk {
		end := min(off+chunk, frames)
		runner.Tick()
		engine.Process(out[off*2 : end*2])
	}
	runner.Stop()
	return out
}

// ClickBeats returns the first n beats of a metronome started at time zero.
func ClickBeats(cfg ClickConfig, n int) []intmetro.Beat {
	if n <= 0 {
		return nil
	}
	clock := intmetro.NewBeatClock(cfg.metronome())
	clock.Start(0)
	beats := make([]intmetro.Beat, 0, n)
	for len(beats) < n {
		next := clock.NextBeatTime()
		beats = append(beats, clock.Schedule(next, clock.SecondsPerBeat()/2)...)
	}
	return beats[:n]
}

const (
	midiTicksPerQuarter = 960
	midiClickChannel    = 9 // General MIDI percussion
	midiAccentKey       = 76
	midiNormalKey       = 77
	midiAccentVelocity  = 120
	midiNormalVelocity  = 90
)

// ExportClickMIDI writes measures of clicks as a standard MIDI file: a
// conductor track with meter and tempo, and a percussion track using the
// high and low wood block.
func ExportClickMIDI(w io.Writer, cfg ClickConfig, measures int) error {
	if measures <= 0 {
		return errors.New("measures must be positive")
	}
	mc := intmetro.NewBeatClock(cfg.metronome()).Status()
	unit := mc.BeatUnit
	// SMF meters store the denominator as a power of two.
	if unit <= 0 || unit&(unit-1) != 0 || midiTicksPerQuarter*4%unit != 0 {
		return fmt.Errorf("unsupported beat unit %d", unit)
	}
	// Metronome tempo counts beat units; MIDI tempo counts quarter notes.
	quarterBPM := float64(mc.Tempo) * 4 / float64(unit)
	ticksPerBeat := uint32(midiTicksPerQuarter * 4 / unit)
	gate := ticksPerBeat / 4

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(midiTicksPerQuarter)

	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(uint8(mc.BeatsPerMeasure), uint8(unit)))
	conductor.Add(0, smf.MetaTempo(quarterBPM))
	conductor.Close(0)
	if err := sm.Add(conductor); err != nil {
		return fmt.Errorf("adding tempo track: %w", err)
	}

	var clicks smf.Track
	for _, b := range ClickBeats(cfg, measures*mc.BeatsPerMeasure) {
		key, vel := uint8(midiNormalKey), uint8(midiNormalVelocity)
		if b.Accented {
			key, vel = midiAccentKey, midiAccentVelocity
		}
		var delta uint32
		if b.Number > 0 {
			delta = ticksPerBeat - gate
		}
		clicks.Add(delta, midi.NoteOn(midiClickChannel, key, vel))
		clicks.Add(gate, midi.NoteOff(midiClickChannel, key))
	}
	clicks.Close(0)
	if err := sm.Add(clicks); err != nil {
		return fmt.Errorf("adding click track: %w", err)
	}

	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("writing midi: %w", err)
	}
	return nil
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
