package metronome

import (
	"context"
	"sync"
	"time"
)

type RunnerOptions struct {
	Lookahead    float64       // seconds; 0 = DefaultLookahead
	TickInterval time.Duration // 0 = DefaultTickInterval
	// OnState is called after every state transition, outside the runner
	// lock.
	OnState func(Status)
	// Manual disables the tick goroutine; the owner calls Tick itself.
	Manual bool
}

// Runner drives a BeatClock from an AudioClock. While playing, a goroutine
// ticks every TickInterval and hands each beat due within the lookahead
// window to the Sink.
type Runner struct {
	ctl sync.Mutex // serializes Start/Pause/Resume/Stop
	mu  sync.Mutex // guards clock

	clock     *BeatClock
	audio     AudioClock
	sink      Sink
	lookahead float64
	interval  time.Duration
	manual    bool
	onState   func(Status)

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(cfg Config, audio AudioClock, sink Sink, opts RunnerOptions) *Runner {
	r := &Runner{
		clock:     NewBeatClock(cfg),
		audio:     audio,
		sink:      sink,
		lookahead: opts.Lookahead,
		interval:  opts.TickInterval,
		manual:    opts.Manual,
		onState:   opts.OnState,
	}
	if r.lookahead <= 0 {
		r.lookahead = DefaultLookahead
	}
	if r.interval <= 0 {
		r.interval = DefaultTickInterval
	}
	return r
}

func (r *Runner) Start() {
	r.ctl.Lock()
	defer r.ctl.Unlock()
	r.stopLoop()
	r.mu.Lock()
	r.clock.Start(r.audio.Now())
	r.mu.Unlock()
	r.Tick()
	r.startLoop()
	r.notify()
}

func (r *Runner) Pause() {
	r.ctl.Lock()
	defer r.ctl.Unlock()
	r.stopLoop()
	r.mu.Lock()
	r.clock.Pause(r.audio.Now())
	r.mu.Unlock()
	r.notify()
}

// Resume continues a paused metronome, or starts it when there is nothing
// to resume.
func (r *Runner) Resume() {
	r.ctl.Lock()
	defer r.ctl.Unlock()
	r.mu.Lock()
	wasPlaying := r.clock.State() == Playing
	r.clock.Resume(r.audio.Now())
	r.mu.Unlock()
	if wasPlaying {
		return
	}
	r.Tick()
	r.startLoop()
	r.notify()
}

// Stop cancels the tick goroutine and waits for it to exit before clearing
// the clock. No beats are delivered after Stop returns.
func (r *Runner) Stop() {
	r.ctl.Lock()
	defer r.ctl.Unlock()
	r.stopLoop()
	r.mu.Lock()
	r.clock.Stop()
	r.mu.Unlock()
	r.notify()
}

// Tick schedules every beat due within the lookahead window.
func (r *Runner) Tick() []Beat {
	r.mu.Lock()
	defer r.mu.Unlock()
	beats := r.clock.Schedule(r.audio.Now(), r.lookahead)
	if r.sink != nil {
		for _, b := range beats {
			r.sink.ScheduleBeat(b)
		}
	}
	return beats
}

func (r *Runner) SetTempo(bpm int) {
	r.mu.Lock()
	r.clock.SetTempo(bpm)
	r.mu.Unlock()
	r.notify()
}

func (r *Runner) SetBeatsPerMeasure(n int) {
	r.mu.Lock()
	r.clock.SetBeatsPerMeasure(n)
	r.mu.Unlock()
	r.notify()
}

func (r *Runner) SetBeatUnit(unit int) {
	r.mu.Lock()
	r.clock.SetBeatUnit(unit)
	r.mu.Unlock()
}

func (r *Runner) SetAccentFirstBeat(on bool) {
	r.mu.Lock()
	r.clock.SetAccentFirstBeat(on)
	r.mu.Unlock()
}

func (r *Runner) ResetToBeat(beat int) {
	r.mu.Lock()
	r.clock.ResetToBeat(beat, r.audio.Now())
	r.mu.Unlock()
	r.Tick()
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock.Status()
}

func (r *Runner) State() State {
	return r.Status().State
}

// Running reports whether the tick goroutine is alive.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Runner) startLoop() {
	if r.manual {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()
	go r.loop(ctx, done)
}

func (r *Runner) stopLoop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

func (r *Runner) notify() {
	if r.onState == nil {
		return
	}
	r.onState(r.Status())
}
