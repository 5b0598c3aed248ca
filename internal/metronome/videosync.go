package metronome

import (
	"math"
	"sync"

	"github.com/cbegin/tabioke-go/internal/scroll"
	"github.com/cbegin/tabioke-go/internal/tab"
)

type VideoSyncOptions struct {
	// AutoStart follows the video: start on play, pause on pause or end,
	// stop on stop.
	AutoStart bool
	// SyncTempo scales the tempo with the video playback rate.
	SyncTempo bool
	// Offset is the video time in seconds at which the first beat falls.
	Offset float64
}

// VideoSync couples a Runner to video playback events. With a positive
// offset, starting is deferred until a progress sample reaches it.
type VideoSync struct {
	mu        sync.Mutex
	runner    *Runner
	autoStart bool
	syncTempo bool
	offset    float64
	baseTempo int
	rate      float64
	waiting   bool
}

func NewVideoSync(r *Runner, opts VideoSyncOptions) *VideoSync {
	return &VideoSync{
		runner:    r,
		autoStart: opts.AutoStart,
		syncTempo: opts.SyncTempo,
		offset:    tab.ClampOffset(opts.Offset),
		baseTempo: r.Status().Tempo,
		rate:      1,
	}
}

func (v *VideoSync) SetAutoStart(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.autoStart = on
	if !on {
		v.waiting = false
	}
}

func (v *VideoSync) SetSyncTempo(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.syncTempo = on
}

// SetOffset clamps seconds to [-10, 60] at two decimals.
func (v *VideoSync) SetOffset(seconds float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = tab.ClampOffset(seconds)
}

func (v *VideoSync) Offset() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}

// SetBaseTempo sets the tempo at normal playback speed and applies the
// current rate when tempo sync is on.
func (v *VideoSync) SetBaseTempo(bpm int) {
	v.mu.Lock()
	v.baseTempo = ClampTempo(bpm)
	tempo := v.baseTempo
	if v.syncTempo {
		tempo = scaledTempo(v.baseTempo, v.rate)
	}
	v.mu.Unlock()
	v.runner.SetTempo(tempo)
}

func (v *VideoSync) BaseTempo() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.baseTempo
}

// Waiting reports whether a start is pending on the offset.
func (v *VideoSync) Waiting() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.waiting
}

func (v *VideoSync) OnState(state scroll.VideoState, current float64) {
	v.mu.Lock()
	if !v.autoStart {
		v.mu.Unlock()
		return
	}
	offset := v.offset
	v.waiting = false
	v.mu.Unlock()

	switch state {
	case scroll.VideoPlaying:
		if offset > 0 && current < offset {
			v.mu.Lock()
			v.waiting = true
			v.mu.Unlock()
			return
		}
		v.runner.Resume()
	case scroll.VideoPaused, scroll.VideoEnded:
		v.runner.Pause()
	case scroll.VideoStopped:
		v.runner.Stop()
	}
}

// OnProgress starts a pending metronome once the video reaches the offset.
func (v *VideoSync) OnProgress(current float64) {
	v.mu.Lock()
	ready := v.waiting && current >= v.offset
	if ready {
		v.waiting = false
	}
	v.mu.Unlock()
	if ready {
		v.runner.Resume()
	}
}

// OnLoopRestart returns to the first beat of the measure when a looped
// section of the video starts over.
func (v *VideoSync) OnLoopRestart() {
	v.mu.Lock()
	auto := v.autoStart
	v.mu.Unlock()
	if auto && v.runner.State() == Playing {
		v.runner.ResetToBeat(0)
	}
}

func (v *VideoSync) OnPlaybackRate(rate float64) {
	v.mu.Lock()
	if math.IsNaN(rate) || rate <= 0 {
		v.mu.Unlock()
		return
	}
	v.rate = rate
	if !v.syncTempo {
		v.mu.Unlock()
		return
	}
	tempo := scaledTempo(v.baseTempo, rate)
	v.mu.Unlock()
	v.runner.SetTempo(tempo)
}

func scaledTempo(base int, rate float64) int {
	return ClampTempo(int(math.Round(float64(base) * rate)))
}
