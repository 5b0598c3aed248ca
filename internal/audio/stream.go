package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleSource fills dst with interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// StreamReader adapts a SampleSource to the little-endian float32 byte
// stream the audio device pulls from.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
	closed bool
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, io.EOF
	}

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// Player streams a SampleSource to the default output device.
type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

// NewPlayer opens a device stream. A short buffer keeps the device close to
// the source's own clock; zero leaves the backend default.
func NewPlayer(sampleRate int, source SampleSource, buffer time.Duration) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("open audio stream: %w", err)
	}
	if buffer > 0 {
		pl.SetBufferSize(buffer)
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play() { p.player.Play() }

// Position returns how much audio the listener has heard.
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

// Stop ends the device stream. The reader reports EOF from then on.
func (p *Player) Stop() error {
	err := p.player.Close()
	p.reader.Close()
	if err != nil {
		return fmt.Errorf("close audio stream: %w", err)
	}
	return nil
}
